package tablestate

import (
	"encoding/json"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query parameter keys. These are a wire format shared with bookmarked URLs
// and must not change.
const (
	KeyPage           = "page"
	KeyPerPage        = "perPage"
	KeyPageSize       = "pageSize"
	KeySort           = "sort"
	KeyFilterPrefix   = "filter_"
	KeyColumnsVisible = "cols_visible"
	KeyColumnPrefix   = "col_"
	KeyColumnsOrder   = "cols_order"
)

// DefaultPageSize is used when no page size option is given.
const DefaultPageSize = 10

// Codec converts between State and query parameters.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	defaultPageSize int
	maxPageSize     int
}

// Option configures a Codec.
type Option func(*Codec)

// WithDefaultPageSize sets the page size used when the URL carries none.
func WithDefaultPageSize(n int) Option {
	return func(c *Codec) {
		c.defaultPageSize = n
	}
}

// WithMaxPageSize clamps parsed page sizes. Zero disables the limit.
func WithMaxPageSize(n int) Option {
	return func(c *Codec) {
		c.maxPageSize = n
	}
}

// NewCodec creates a Codec.
func NewCodec(opts ...Option) (*Codec, error) {
	c := &Codec{defaultPageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultPageSize <= 0 {
		return nil, &ArgumentError{Field: "defaultPageSize", Value: c.defaultPageSize, Reason: "must be positive"}
	}
	if c.maxPageSize < 0 {
		return nil, &ArgumentError{Field: "maxPageSize", Value: c.maxPageSize, Reason: "must not be negative"}
	}
	if c.maxPageSize > 0 && c.maxPageSize < c.defaultPageSize {
		return nil, &ArgumentError{Field: "maxPageSize", Value: c.maxPageSize, Reason: "must not be below the default page size"}
	}
	return c, nil
}

// MustCodec is like NewCodec but panics on error.
func MustCodec(opts ...Option) *Codec {
	c, err := NewCodec(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultPageSize returns the page size used when the URL carries none.
func (c *Codec) DefaultPageSize() int {
	return c.defaultPageSize
}

// Default returns the state an empty query string parses to.
func (c *Codec) Default() State {
	return State{Pagination: Pagination{PageSize: c.defaultPageSize}}.normalize()
}

// Parse decodes table state from query parameters.
// It never fails: malformed values are replaced by their defaults.
func (c *Codec) Parse(params url.Values) State {
	state := c.Default()

	size, ok := lastInt(params, KeyPerPage)
	if !ok || size <= 0 {
		size, ok = lastInt(params, KeyPageSize)
	}
	if ok && size > 0 {
		if c.maxPageSize > 0 && size > c.maxPageSize {
			size = c.maxPageSize
		}
		state.Pagination.PageSize = size
	}

	if page, ok := lastInt(params, KeyPage); ok && page >= 1 {
		state.Pagination.PageIndex = min(page-1, maxPageIndex(state.Pagination.PageSize))
	}

	if raw, ok := last(params, KeySort); ok {
		state.Sorting = parseSort(raw)
	}

	state.ColumnFilters = parseFilters(params)
	state.ColumnVisibility = parseVisibility(params)

	if raw, ok := last(params, KeyColumnsOrder); ok {
		state.ColumnOrder = splitList(raw)
	}

	return state
}

// maxPageIndex is the largest page index whose row offset fits in an int.
func maxPageIndex(pageSize int) int {
	return math.MaxInt/pageSize - 1
}

// ParseQuery decodes table state from a raw query string.
// An undecodable query string parses to the default state.
func (c *Codec) ParseQuery(rawQuery string) State {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return c.Default()
	}
	return c.Parse(values)
}

func parseSort(raw string) []Sort {
	sorting := []Sort{}
	seen := make(map[string]bool)
	for _, part := range splitList(raw) {
		desc := strings.HasPrefix(part, "-")
		id := strings.TrimPrefix(part, "-")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		sorting = append(sorting, Sort{ColumnID: id, Desc: desc})
	}
	return sorting
}

func parseFilters(params url.Values) []ColumnFilter {
	filters := []ColumnFilter{}
	for key := range params {
		id, ok := strings.CutPrefix(key, KeyFilterPrefix)
		if !ok || id == "" {
			continue
		}
		raw, _ := last(params, key)
		value, ok := parseFilterValue(raw)
		if !ok {
			continue
		}
		filters = append(filters, ColumnFilter{ColumnID: id, Value: value})
	}
	sort.Slice(filters, func(i, j int) bool {
		return filters[i].ColumnID < filters[j].ColumnID
	})
	return filters
}

// parseFilterValue decodes one filter value. Values that look like a JSON
// object must decode to {"operator": string, "value": any}.
func parseFilterValue(raw string) (FilterValue, bool) {
	if raw == "" {
		return FilterValue{}, false
	}
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return Raw(raw), true
	}

	var wire struct {
		Operator *string `json:"operator"`
		Value    any     `json:"value"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return FilterValue{}, false
	}
	if wire.Operator == nil || *wire.Operator == "" {
		return FilterValue{}, false
	}
	return Structured(Operator(*wire.Operator), wire.Value), true
}

func parseVisibility(params url.Values) map[string]bool {
	visibility := map[string]bool{}

	for key := range params {
		id, ok := strings.CutPrefix(key, KeyColumnPrefix)
		if !ok || !listID(id) {
			continue
		}
		raw, _ := last(params, key)
		if visible, ok := parseBool(raw); ok {
			visibility[id] = visible
		}
	}

	if raw, ok := last(params, KeyColumnsVisible); ok {
		for _, part := range splitList(raw) {
			hidden := strings.HasPrefix(part, "-")
			id := strings.TrimPrefix(part, "-")
			if id == "" {
				continue
			}
			visibility[id] = !hidden
		}
	}

	return visibility
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// last returns the last value for key; later values override earlier ones.
func last(params url.Values, key string) (string, bool) {
	values, ok := params[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

func lastInt(params url.Values, key string) (int, bool) {
	raw, ok := last(params, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

// listID reports whether id survives a round trip through a
// comma-separated list entry.
func listID(id string) bool {
	return id != "" && id == strings.TrimSpace(id) &&
		!strings.HasPrefix(id, "-") && !strings.Contains(id, ",")
}

// splitList splits a comma-separated list, dropping empty segments.
func splitList(raw string) []string {
	parts := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
