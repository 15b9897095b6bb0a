package sales

import (
	"fmt"
	"strings"
)

type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortSumPrice    SortField = "sum_price"
	SortOrderNumber SortField = "order_number"
)

type SortSpec struct {
	Field SortField
	Desc  bool
}

var DefaultSort = SortSpec{Field: SortCreatedAt, Desc: true}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParseSort accepts "field" or "field,asc|desc". Empty input yields DefaultSort.
func ParseSort(raw string) (SortSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, nil
	}
	field, dir, _ := strings.Cut(raw, ",")
	spec := SortSpec{Field: SortField(strings.ToLower(strings.TrimSpace(field)))}
	switch spec.Field {
	case SortCreatedAt, SortSumPrice, SortOrderNumber:
	default:
		return SortSpec{}, invalid("unknown sort field %q", field)
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		spec.Desc = true
	default:
		return SortSpec{}, invalid("unknown sort direction %q", dir)
	}
	return spec, nil
}

func (s SortSpec) String() string {
	if s.Desc {
		return fmt.Sprintf("%s,desc", s.Field)
	}
	return fmt.Sprintf("%s,asc", s.Field)
}

type OrderQuery struct {
	StoreID  int64
	Range    DateRange
	Page     int
	PageSize int
	Sort     SortSpec
}

// Offset is the number of rows skipped before the requested page.
func (q OrderQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

func (q OrderQuery) normalize() (OrderQuery, error) {
	if q.StoreID <= 0 {
		return q, invalid("store id must be positive")
	}
	if err := checkRange(q.Range); err != nil {
		return q, err
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		return q, invalid("page size must not exceed %d", MaxPageSize)
	}
	if q.Sort.Field == "" {
		q.Sort = DefaultSort
	}
	return q, nil
}

func checkRange(r DateRange) error {
	if r.From.IsZero() || r.To.IsZero() {
		return invalid("date range requires both from and to")
	}
	if r.To.Before(r.From) {
		return invalid("date range end precedes start")
	}
	return nil
}
