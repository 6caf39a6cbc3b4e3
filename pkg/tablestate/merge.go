package tablestate

import (
	"net/url"
	"strings"
)

// Group is a set of query parameters that are updated together.
type Group uint8

const (
	GroupPagination Group = 1 << iota
	GroupSorting
	GroupFilters
	GroupVisibility
	GroupOrder
)

// Owns reports whether key belongs to the group.
func (g Group) Owns(key string) bool {
	switch g {
	case GroupPagination:
		return key == KeyPage || key == KeyPerPage || key == KeyPageSize
	case GroupSorting:
		return key == KeySort
	case GroupFilters:
		return strings.HasPrefix(key, KeyFilterPrefix)
	case GroupVisibility:
		return key == KeyColumnsVisible || strings.HasPrefix(key, KeyColumnPrefix)
	case GroupOrder:
		return key == KeyColumnsOrder
	}
	return false
}

// String returns the group name.
func (g Group) String() string {
	switch g {
	case GroupPagination:
		return "pagination"
	case GroupSorting:
		return "sorting"
	case GroupFilters:
		return "filters"
	case GroupVisibility:
		return "visibility"
	case GroupOrder:
		return "order"
	}
	return "unknown"
}

var groups = []Group{GroupPagination, GroupSorting, GroupFilters, GroupVisibility, GroupOrder}

// Update is a partial state change. Only groups set through its builder
// methods are written by MergeIntoQuery.
type Update struct {
	groups Group
	state  State
	err    error
}

// NewUpdate returns an empty Update.
func NewUpdate() Update {
	return Update{}
}

// Pagination replaces the page and page size. An invalid p is recorded
// and reported by Err and MergeIntoQuery.
func (u Update) Pagination(p Pagination) Update {
	u.groups |= GroupPagination
	u.state.Pagination = p
	if err := p.Validate(); err != nil && u.err == nil {
		u.err = err
	}
	return u
}

// Sorting replaces the sort keys.
func (u Update) Sorting(s []Sort) Update {
	u.groups |= GroupSorting
	u.state.Sorting = s
	return u
}

// Filters replaces every column filter.
func (u Update) Filters(f []ColumnFilter) Update {
	u.groups |= GroupFilters
	u.state.ColumnFilters = f
	return u
}

// Visibility replaces every visibility override.
func (u Update) Visibility(v map[string]bool) Update {
	u.groups |= GroupVisibility
	u.state.ColumnVisibility = v
	return u
}

// Order replaces the column order.
func (u Update) Order(o []string) Update {
	u.groups |= GroupOrder
	u.state.ColumnOrder = o
	return u
}

// Err returns the first invalid value given to the builder, as an
// *ArgumentError.
func (u Update) Err() error {
	return u.err
}

// Has reports whether the update writes group g.
func (u Update) Has(g Group) bool {
	return u.groups&g != 0
}

// MergeIntoQuery applies u to a copy of existing. Keys owned by an updated
// group are replaced as a unit; every other key passes through unchanged.
// existing is never modified. An Update holding an invalid value is
// rejected with its *ArgumentError.
func (c *Codec) MergeIntoQuery(existing url.Values, u Update) (url.Values, error) {
	if u.err != nil {
		return nil, u.err
	}

	merged := make(url.Values, len(existing))
	for k, v := range existing {
		merged[k] = append([]string(nil), v...)
	}

	serialized := c.Serialize(u.state)
	for _, g := range groups {
		if !u.Has(g) {
			continue
		}
		for k := range merged {
			if g.Owns(k) {
				delete(merged, k)
			}
		}
		for k, v := range serialized {
			if g.Owns(k) {
				merged.Set(k, v)
			}
		}
	}
	return merged, nil
}
