package tablestate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// ErrInvalidArgument is matched by every error returned for a state value
// that was constructed programmatically with an out-of-range field.
var ErrInvalidArgument = errors.New("tablestate: invalid argument")

// ArgumentError describes a rejected constructor argument.
type ArgumentError struct {
	Field  string
	Value  int
	Reason string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tablestate: invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidArgument.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Operator is a structured filter operator.
type Operator string

// Operators understood by the query layer. The codec itself stores any
// non-empty operator string without checking it against this list.
const (
	OpILike      Operator = "iLike"
	OpNotILike   Operator = "notILike"
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpLt         Operator = "lt"
	OpGt         Operator = "gt"
	OpInArray    Operator = "inArray"
	OpNotInArray Operator = "notInArray"
	OpIsEmpty    Operator = "isEmpty"
	OpIsNotEmpty Operator = "isNotEmpty"
	OpIsBetween  Operator = "isBetween"
)

// Pagination is the current page window. PageIndex is 0-based.
type Pagination struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

// NewPagination validates and returns a Pagination.
func NewPagination(pageIndex, pageSize int) (Pagination, error) {
	p := Pagination{PageIndex: pageIndex, PageSize: pageSize}
	if err := p.Validate(); err != nil {
		return Pagination{}, err
	}
	return p, nil
}

// Validate checks PageIndex >= 0 and PageSize > 0.
func (p Pagination) Validate() error {
	if p.PageIndex < 0 {
		return &ArgumentError{Field: "pageIndex", Value: p.PageIndex, Reason: "must not be negative"}
	}
	if p.PageSize <= 0 {
		return &ArgumentError{Field: "pageSize", Value: p.PageSize, Reason: "must be positive"}
	}
	return nil
}

// Offset returns the number of rows before the current page. It
// saturates at math.MaxInt instead of overflowing.
func (p Pagination) Offset() int {
	if p.PageIndex <= 0 || p.PageSize <= 0 {
		return 0
	}
	if p.PageIndex > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return p.PageIndex * p.PageSize
}

// PageCount returns the number of pages needed for total rows.
func (p Pagination) PageCount(total int) int {
	if p.PageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}

// Sort is one sort key. The first Sort in a slice is the primary key.
type Sort struct {
	ColumnID string `json:"id"`
	Desc     bool   `json:"desc"`
}

// FilterValue is either a raw scalar (Operator empty) or a structured
// operator/value pair decoded from JSON.
type FilterValue struct {
	Operator Operator `json:"operator,omitempty"`
	Value    any      `json:"value"`
}

// Raw returns a raw scalar filter value.
func Raw(s string) FilterValue {
	return FilterValue{Value: s}
}

// Structured returns an operator/value filter value.
func Structured(op Operator, value any) FilterValue {
	return FilterValue{Operator: op, Value: value}
}

// IsStructured reports whether the value carries an operator.
func (v FilterValue) IsStructured() bool {
	return v.Operator != ""
}

// ColumnFilter is a filter applied to one column.
type ColumnFilter struct {
	ColumnID string      `json:"id"`
	Value    FilterValue `json:"value"`
}

// State is the complete serializable configuration of a data table.
type State struct {
	Pagination       Pagination      `json:"pagination"`
	Sorting          []Sort          `json:"sorting"`
	ColumnFilters    []ColumnFilter  `json:"columnFilters"`
	ColumnVisibility map[string]bool `json:"columnVisibility"`
	ColumnOrder      []string        `json:"columnOrder"`
}

// Validate checks the programmatic invariants of the state.
func (s State) Validate() error {
	return s.Pagination.Validate()
}

// Filter returns the filter for columnID, if any.
func (s State) Filter(columnID string) (FilterValue, bool) {
	for _, f := range s.ColumnFilters {
		if f.ColumnID == columnID {
			return f.Value, true
		}
	}
	return FilterValue{}, false
}

// Equal reports whether two states are equivalent. Nil and empty
// collections compare equal.
func (s State) Equal(o State) bool {
	if s.Pagination != o.Pagination {
		return false
	}
	if len(s.Sorting) != len(o.Sorting) || len(s.ColumnFilters) != len(o.ColumnFilters) ||
		len(s.ColumnVisibility) != len(o.ColumnVisibility) || len(s.ColumnOrder) != len(o.ColumnOrder) {
		return false
	}
	for i := range s.Sorting {
		if s.Sorting[i] != o.Sorting[i] {
			return false
		}
	}
	for i := range s.ColumnFilters {
		a, b := s.ColumnFilters[i], o.ColumnFilters[i]
		if a.ColumnID != b.ColumnID || a.Value.Operator != b.Value.Operator ||
			!reflect.DeepEqual(a.Value.Value, b.Value.Value) {
			return false
		}
	}
	for k, v := range s.ColumnVisibility {
		if ov, ok := o.ColumnVisibility[k]; !ok || ov != v {
			return false
		}
	}
	for i := range s.ColumnOrder {
		if s.ColumnOrder[i] != o.ColumnOrder[i] {
			return false
		}
	}
	return true
}

// normalize replaces nil collections with empty ones.
func (s State) normalize() State {
	if s.Sorting == nil {
		s.Sorting = []Sort{}
	}
	if s.ColumnFilters == nil {
		s.ColumnFilters = []ColumnFilter{}
	}
	if s.ColumnVisibility == nil {
		s.ColumnVisibility = map[string]bool{}
	}
	if s.ColumnOrder == nil {
		s.ColumnOrder = []string{}
	}
	return s
}
