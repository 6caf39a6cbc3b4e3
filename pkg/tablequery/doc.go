// Package tablequery translates table state into SQL clauses.
//
// A Schema declares which table-state column ids are sortable and filterable
// and which SQL expressions they map to. Build turns a tablestate.State into
// a WHERE expression with bound arguments, an ORDER BY list and a LIMIT and
// OFFSET. Column identifiers in the generated SQL always come from the
// Schema; ids and operators it does not know are skipped.
//
//	schema := tablequery.Schema{
//	    Columns: map[string]tablequery.Column{
//	        "name":     {Sort: "c.first_name", Filter: []string{"c.first_name", "c.last_name"}},
//	        "location": {Sort: "c.city", Filter: []string{"c.city", "c.state"}},
//	    },
//	    DefaultSort: []tablestate.Sort{{ColumnID: "name"}},
//	}
//	q := schema.Build(state, tablequery.Postgres)
//	rows, err := db.QueryContext(ctx, "SELECT ... FROM contacts c"+q.WhereClause()+q.PageClause(), q.Args...)
package tablequery
