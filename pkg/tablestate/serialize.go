package tablestate

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Serialize encodes state as query parameters. Values equal to their
// defaults are omitted, so Serialize(Default()) is empty.
func (c *Codec) Serialize(s State) map[string]string {
	params := make(map[string]string)

	if s.Pagination.PageIndex > 0 {
		params[KeyPage] = strconv.Itoa(s.Pagination.PageIndex + 1)
	}
	if s.Pagination.PageSize > 0 && s.Pagination.PageSize != c.defaultPageSize {
		params[KeyPerPage] = strconv.Itoa(s.Pagination.PageSize)
	}

	if v := encodeSort(s.Sorting); v != "" {
		params[KeySort] = v
	}

	for _, f := range s.ColumnFilters {
		if f.ColumnID == "" {
			continue
		}
		if v, ok := encodeFilterValue(f.Value); ok {
			params[KeyFilterPrefix+f.ColumnID] = v
		}
	}

	if v := encodeVisibility(s.ColumnVisibility); v != "" {
		params[KeyColumnsVisible] = v
	}

	if len(s.ColumnOrder) > 0 {
		params[KeyColumnsOrder] = strings.Join(s.ColumnOrder, ",")
	}

	return params
}

// Values is Serialize as url.Values.
func (c *Codec) Values(s State) url.Values {
	values := make(url.Values)
	for k, v := range c.Serialize(s) {
		values.Set(k, v)
	}
	return values
}

// Encode returns the query string for state with keys in sorted order.
func (c *Codec) Encode(s State) string {
	return c.Values(s).Encode()
}

func encodeSort(sorting []Sort) string {
	parts := make([]string, 0, len(sorting))
	for _, s := range sorting {
		if s.ColumnID == "" {
			continue
		}
		if s.Desc {
			parts = append(parts, "-"+s.ColumnID)
		} else {
			parts = append(parts, s.ColumnID)
		}
	}
	return strings.Join(parts, ",")
}

// encodeFilterValue writes raw scalars verbatim and structured values as
// compact JSON.
func encodeFilterValue(v FilterValue) (string, bool) {
	if !v.IsStructured() {
		switch raw := v.Value.(type) {
		case string:
			return raw, raw != ""
		case nil:
			return "", false
		default:
			return stringify(raw), true
		}
	}
	data, err := json.Marshal(struct {
		Operator Operator `json:"operator"`
		Value    any      `json:"value"`
	}{v.Operator, v.Value})
	if err != nil {
		return "", false
	}
	return string(data), true
}

func stringify(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func encodeVisibility(visibility map[string]bool) string {
	ids := make([]string, 0, len(visibility))
	for id := range visibility {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if visibility[id] {
			parts = append(parts, id)
		} else {
			parts = append(parts, "-"+id)
		}
	}
	return strings.Join(parts, ",")
}
