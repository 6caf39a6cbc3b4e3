package tablestate

import (
	"errors"
	"math"
	"net/url"
	"reflect"
	"testing"
)

func mustParseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	values, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", raw, err)
	}
	return values
}

func TestNewCodec_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"defaults", nil, false},
		{"custom default", []Option{WithDefaultPageSize(25)}, false},
		{"zero default", []Option{WithDefaultPageSize(0)}, true},
		{"negative max", []Option{WithMaxPageSize(-1)}, true},
		{"max below default", []Option{WithDefaultPageSize(20), WithMaxPageSize(10)}, true},
		{"max equals default", []Option{WithDefaultPageSize(20), WithMaxPageSize(20)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCodec() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("errors.Is(%v, ErrInvalidArgument) = false", err)
			}
		})
	}
}

func TestNewPagination(t *testing.T) {
	if _, err := NewPagination(0, 10); err != nil {
		t.Fatalf("NewPagination(0, 10) error = %v", err)
	}
	if _, err := NewPagination(-1, 10); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewPagination(-1, 10) error = %v, want ErrInvalidArgument", err)
	}
	_, err := NewPagination(0, -5)
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("NewPagination(0, -5) error = %v, want *ArgumentError", err)
	}
	if argErr.Field != "pageSize" || argErr.Value != -5 {
		t.Errorf("ArgumentError = %+v, want field pageSize value -5", argErr)
	}
}

func TestPagination_OffsetAndPageCount(t *testing.T) {
	p := Pagination{PageIndex: 2, PageSize: 25}
	if got := p.Offset(); got != 50 {
		t.Errorf("Offset() = %d, want 50", got)
	}
	tests := []struct {
		total int
		want  int
	}{
		{0, 0},
		{1, 1},
		{25, 1},
		{26, 2},
		{100, 4},
	}
	for _, tt := range tests {
		if got := p.PageCount(tt.total); got != tt.want {
			t.Errorf("PageCount(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}

func TestParse_Default(t *testing.T) {
	c := MustCodec()
	got := c.Parse(url.Values{})

	if got.Pagination != (Pagination{PageIndex: 0, PageSize: DefaultPageSize}) {
		t.Errorf("Pagination = %+v", got.Pagination)
	}
	if got.Sorting == nil || got.ColumnFilters == nil || got.ColumnVisibility == nil || got.ColumnOrder == nil {
		t.Errorf("Parse returned nil collections: %+v", got)
	}
	if !got.Equal(c.Default()) {
		t.Errorf("Parse(empty) = %+v, want Default()", got)
	}
}

func TestParse_Pagination(t *testing.T) {
	c := MustCodec(WithDefaultPageSize(10), WithMaxPageSize(100))

	tests := []struct {
		query     string
		wantIndex int
		wantSize  int
	}{
		{"", 0, 10},
		{"page=1", 0, 10},
		{"page=3", 2, 10},
		{"page=0", 0, 10},
		{"page=-4", 0, 10},
		{"page=abc", 0, 10},
		{"page=2&page=5", 4, 10},
		{"perPage=25", 0, 25},
		{"pageSize=50", 0, 50},
		{"perPage=25&pageSize=50", 0, 25},
		{"perPage=0&pageSize=50", 0, 50},
		{"perPage=-1", 0, 10},
		{"perPage=x", 0, 10},
		{"perPage=5000", 0, 100},
		{"page=%202%20", 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := c.Parse(mustParseQuery(t, tt.query)).Pagination
			if got.PageIndex != tt.wantIndex || got.PageSize != tt.wantSize {
				t.Errorf("Pagination = %+v, want index %d size %d", got, tt.wantIndex, tt.wantSize)
			}
		})
	}
}

func TestParse_HugePageKeepsOffsetInRange(t *testing.T) {
	c := MustCodec(WithDefaultPageSize(10), WithMaxPageSize(100))

	tests := []struct {
		query string
		size  int
	}{
		{"page=9223372036854775807&perPage=10", 10},
		{"page=9223372036854775807&perPage=100", 100},
		{"page=9223372036854775807", 10},
		{"page=922337203685477580&perPage=25", 25},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := c.Parse(mustParseQuery(t, tt.query)).Pagination
			if p.PageSize != tt.size {
				t.Fatalf("PageSize = %d, want %d", p.PageSize, tt.size)
			}
			if want := math.MaxInt/tt.size - 1; p.PageIndex != want {
				t.Errorf("PageIndex = %d, want %d", p.PageIndex, want)
			}
			if off := p.Offset(); off < 0 || off != p.PageIndex*p.PageSize {
				t.Errorf("Offset() = %d for %+v", off, p)
			}
		})
	}
}

func TestParse_HugePageRoundTrips(t *testing.T) {
	c := MustCodec()
	s := c.Parse(mustParseQuery(t, "page=9223372036854775807&perPage=50"))
	if got := c.Parse(c.Values(s)); !got.Equal(s) {
		t.Errorf("round trip = %+v, want %+v", got.Pagination, s.Pagination)
	}
}

func TestPagination_OffsetSaturates(t *testing.T) {
	tests := []struct {
		p    Pagination
		want int
	}{
		{Pagination{PageIndex: math.MaxInt, PageSize: 10}, math.MaxInt},
		{Pagination{PageIndex: math.MaxInt/10 + 1, PageSize: 10}, math.MaxInt},
		{Pagination{PageIndex: math.MaxInt / 10, PageSize: 10}, math.MaxInt / 10 * 10},
		{Pagination{PageIndex: 0, PageSize: 10}, 0},
		{Pagination{PageIndex: -3, PageSize: 10}, 0},
	}
	for _, tt := range tests {
		if got := tt.p.Offset(); got != tt.want {
			t.Errorf("%+v.Offset() = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestParse_Sort(t *testing.T) {
	c := MustCodec()

	tests := []struct {
		raw  string
		want []Sort
	}{
		{"name,-createdAt", []Sort{{ColumnID: "name"}, {ColumnID: "createdAt", Desc: true}}},
		{"-a", []Sort{{ColumnID: "a", Desc: true}}},
		{",,a,,", []Sort{{ColumnID: "a"}}},
		{"a,-a,b", []Sort{{ColumnID: "a"}, {ColumnID: "b"}}},
		{"-,b", []Sort{{ColumnID: "b"}}},
		{"", []Sort{}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := c.Parse(url.Values{KeySort: {tt.raw}}).Sorting
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sorting = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_Filters(t *testing.T) {
	c := MustCodec()
	params := url.Values{
		"filter_status":  {`{"operator":"eq","value":"active"}`},
		"filter_city":    {"Berlin"},
		"filter_broken":  {"{not valid json"},
		"filter_noop":    {`{"value":"x"}`},
		"filter_emptyop": {`{"operator":"","value":"x"}`},
		"filter_empty":   {""},
		"filter_":        {"ignored"},
		"filter_ids":     {`{"operator":"inArray","value":[1,2]}`},
		"filter_last":    {"first", "second"},
		"filter_trail":   {`{"operator":"eq","value":1} extra`},
	}

	got := c.Parse(params).ColumnFilters
	want := []ColumnFilter{
		{ColumnID: "city", Value: Raw("Berlin")},
		{ColumnID: "ids", Value: Structured(OpInArray, []any{float64(1), float64(2)})},
		{ColumnID: "last", Value: Raw("second")},
		{ColumnID: "status", Value: Structured(OpEq, "active")},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnFilters = %#v\nwant %#v", got, want)
	}
}

func TestParse_MalformedFilterDropped(t *testing.T) {
	c := MustCodec()
	state := c.Parse(url.Values{"filter_status": {"{not valid json"}})
	if _, ok := state.Filter("status"); ok {
		t.Errorf("filter status present, want dropped")
	}
	if len(state.ColumnFilters) != 0 {
		t.Errorf("ColumnFilters = %+v, want empty", state.ColumnFilters)
	}
}

func TestParse_Visibility(t *testing.T) {
	c := MustCodec()

	tests := []struct {
		query string
		want  map[string]bool
	}{
		{"cols_visible=email,-phone", map[string]bool{"email": true, "phone": false}},
		{"col_email=false&col_phone=1", map[string]bool{"email": false, "phone": true}},
		{"col_email=off&cols_visible=email", map[string]bool{"email": true}},
		{"col_email=maybe", map[string]bool{}},
		{"col_a%2Cb=1", map[string]bool{}},
		{"col_-a=1", map[string]bool{}},
		{"cols_visible=,-,x", map[string]bool{"x": true}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := c.Parse(mustParseQuery(t, tt.query)).ColumnVisibility
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ColumnVisibility = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_ColumnOrder(t *testing.T) {
	c := MustCodec()
	got := c.Parse(url.Values{KeyColumnsOrder: {"name,,email, city "}}).ColumnOrder
	want := []string{"name", "email", "city"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnOrder = %v, want %v", got, want)
	}
}

func TestParse_IgnoresUnknownKeys(t *testing.T) {
	c := MustCodec()
	got := c.Parse(url.Values{"utm_source": {"x"}, "q": {"go"}})
	if !got.Equal(c.Default()) {
		t.Errorf("Parse with foreign keys = %+v, want default", got)
	}
}

func TestParseQuery_Undecodable(t *testing.T) {
	c := MustCodec()
	got := c.ParseQuery("page=%zz")
	if !got.Equal(c.Default()) {
		t.Errorf("ParseQuery(bad) = %+v, want default", got)
	}
	got = c.ParseQuery("page=2&sort=-name")
	if got.Pagination.PageIndex != 1 || len(got.Sorting) != 1 || !got.Sorting[0].Desc {
		t.Errorf("ParseQuery = %+v", got)
	}
}

func TestSerialize(t *testing.T) {
	c := MustCodec()

	state := State{
		Pagination: Pagination{PageIndex: 2, PageSize: 25},
		Sorting:    []Sort{{ColumnID: "name"}, {ColumnID: "createdAt", Desc: true}},
		ColumnFilters: []ColumnFilter{
			{ColumnID: "city", Value: Raw("Berlin")},
			{ColumnID: "status", Value: Structured(OpEq, "active")},
		},
		ColumnVisibility: map[string]bool{"phone": false, "email": true},
		ColumnOrder:      []string{"name", "email"},
	}

	got := c.Serialize(state)
	want := map[string]string{
		"page":          "3",
		"perPage":       "25",
		"sort":          "name,-createdAt",
		"filter_city":   "Berlin",
		"filter_status": `{"operator":"eq","value":"active"}`,
		"cols_visible":  "email,-phone",
		"cols_order":    "name,email",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Serialize() = %v\nwant %v", got, want)
	}
}

func TestSerialize_DefaultIsEmpty(t *testing.T) {
	for _, c := range []*Codec{MustCodec(), MustCodec(WithDefaultPageSize(50))} {
		if got := c.Serialize(c.Default()); len(got) != 0 {
			t.Errorf("Serialize(Default()) = %v, want empty", got)
		}
		if got := c.Serialize(State{Pagination: Pagination{PageSize: c.DefaultPageSize()}}); len(got) != 0 {
			t.Errorf("Serialize(nil collections) = %v, want empty", got)
		}
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	c := MustCodec()
	state := c.ParseQuery("cols_visible=z,-y,x,-w&filter_b=1&filter_a=2&sort=-q")
	first := c.Encode(state)
	for i := 0; i < 20; i++ {
		if got := c.Encode(state); got != first {
			t.Fatalf("Encode() = %q, want %q", got, first)
		}
	}
	if want := "cols_visible=-w%2Cx%2C-y%2Cz&filter_a=2&filter_b=1&sort=-q"; first != want {
		t.Errorf("Encode() = %q, want %q", first, want)
	}
}

func TestRoundTrip(t *testing.T) {
	c := MustCodec(WithDefaultPageSize(10), WithMaxPageSize(100))

	queries := []string{
		"",
		"page=4",
		"perPage=25",
		"pageSize=30",
		"perPage=10",
		"perPage=9999",
		"sort=name,-createdAt",
		"sort=--odd",
		"sort=-%20spaced",
		`filter_status={"operator":"eq","value":"active"}`,
		`filter_status={"operator":"isBetween","value":[1,5.5]}`,
		`filter_status={"operator":"isEmpty"}`,
		`filter_status={"operator":"eq","value":{"nested":true}}`,
		"filter_city=Berlin",
		"filter_city=%20padded%20",
		"filter_city={broken",
		"cols_visible=email,-phone",
		"cols_visible=--x",
		"col_email=false&col_phone=yes",
		"col_email=no&cols_visible=email",
		"cols_order=name,email,city",
		"page=2&perPage=50&sort=-a,b&filter_a=x&cols_visible=a,-b&cols_order=b,a&utm=1",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			state := c.Parse(mustParseQuery(t, q))
			again := c.Parse(c.Values(state))
			if !again.Equal(state) {
				t.Errorf("round trip mismatch\n got  %+v\n want %+v", again, state)
			}
		})
	}
}

func TestState_Equal(t *testing.T) {
	a := State{Pagination: Pagination{PageSize: 10}}
	b := State{
		Pagination:       Pagination{PageSize: 10},
		Sorting:          []Sort{},
		ColumnFilters:    []ColumnFilter{},
		ColumnVisibility: map[string]bool{},
		ColumnOrder:      []string{},
	}
	if !a.Equal(b) {
		t.Error("nil and empty collections should compare equal")
	}

	b.ColumnVisibility = map[string]bool{"x": false}
	if a.Equal(b) {
		t.Error("differing visibility should not compare equal")
	}

	c := State{ColumnFilters: []ColumnFilter{{ColumnID: "a", Value: Structured(OpInArray, []any{"x"})}}}
	d := State{ColumnFilters: []ColumnFilter{{ColumnID: "a", Value: Structured(OpInArray, []any{"x"})}}}
	if !c.Equal(d) {
		t.Error("equal structured filters should compare equal")
	}
	d.ColumnFilters[0].Value.Operator = OpNotInArray
	if c.Equal(d) {
		t.Error("differing operators should not compare equal")
	}
}
