// Package tablestate encodes data-table state in URL query parameters.
//
// A table's pagination, sorting, column filters, column visibility and column
// order are carried in the query string so the state survives reloads and can
// be shared as a link. The Codec converts between the typed State and a flat
// parameter map:
//
//	?page=2&perPage=25&sort=name,-createdAt
//	&filter_status={"operator":"eq","value":"active"}
//	&filter_city=Berlin
//	&cols_visible=email,-phone
//	&cols_order=name,email,city
//
// Parsing is best-effort: malformed values fall back to their defaults and
// never produce an error. Serialization omits every value equal to its
// default, so the default state encodes to an empty map.
//
// # Usage
//
//	codec, err := tablestate.NewCodec(tablestate.WithDefaultPageSize(10))
//	if err != nil {
//	    return err
//	}
//
//	state := codec.Parse(r.URL.Query())
//
//	// Move to the next page while keeping every foreign parameter.
//	next, err := codec.MergeIntoQuery(r.URL.Query(),
//	    tablestate.NewUpdate().Pagination(tablestate.Pagination{
//	        PageIndex: state.Pagination.PageIndex + 1,
//	        PageSize:  state.Pagination.PageSize,
//	    }))
//	if err != nil {
//	    return err
//	}
//	redirect := "?" + next.Encode()
package tablestate
