package service

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/GTDGit/order_console/internal/models"
)

// Query parameters that carry the order list view.
const (
	ParamPage   = "_page"
	ParamLimit  = "_limit"
	ParamSort   = "_sort"
	ParamOrder  = "_order"
	ParamStatus = "status"
	ParamSearch = "q"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// List view defaults.
const (
	DefaultPage          = 1
	DefaultPageSize      = 5
	DefaultSortField     = "createdAt"
	DefaultSortDirection = SortDesc
)

// PageSizeOptions are the page sizes a list view may use.
var PageSizeOptions = []int{5, 10, 25, 50}

// ViewState is the complete state of the order list view. It round-trips
// through the query string.
type ViewState struct {
	Page          int           `json:"page"`
	PageSize      int           `json:"pageSize"`
	SortField     string        `json:"sortField"`
	SortDirection SortDirection `json:"sortDirection"`
	StatusFilter  string        `json:"statusFilter"`
	SearchText    string        `json:"searchText"`
}

// DefaultViewState is the view a fresh list starts with.
func DefaultViewState() ViewState {
	return ViewState{
		Page:          DefaultPage,
		PageSize:      DefaultPageSize,
		SortField:     DefaultSortField,
		SortDirection: DefaultSortDirection,
		StatusFilter:  models.StatusFilterAll,
	}
}

// ParseViewState reads the view from query parameters. Missing or invalid
// parameters take their defaults.
func ParseViewState(q url.Values) ViewState {
	v := DefaultViewState()
	if n, err := strconv.Atoi(q.Get(ParamPage)); err == nil {
		v.Page = n
	}
	if n, err := strconv.Atoi(q.Get(ParamLimit)); err == nil {
		v.PageSize = n
	}
	if s := q.Get(ParamSort); s != "" {
		v.SortField = s
	}
	if s := q.Get(ParamOrder); s != "" {
		v.SortDirection = SortDirection(strings.ToLower(s))
	}
	if s := q.Get(ParamStatus); s != "" {
		v.StatusFilter = s
	}
	v.SearchText = q.Get(ParamSearch)
	return v.normalize()
}

// Values encodes the view as query parameters. An empty search is omitted.
func (v ViewState) Values() url.Values {
	q := url.Values{}
	q.Set(ParamPage, strconv.Itoa(v.Page))
	q.Set(ParamLimit, strconv.Itoa(v.PageSize))
	q.Set(ParamSort, v.SortField)
	q.Set(ParamOrder, string(v.SortDirection))
	q.Set(ParamStatus, v.StatusFilter)
	if v.SearchText != "" {
		q.Set(ParamSearch, v.SearchText)
	}
	return q
}

// Encode returns the view as an encoded query string.
func (v ViewState) Encode() string {
	return v.Values().Encode()
}

// ViewPatch lists the fields of a view change. Nil fields are kept.
type ViewPatch struct {
	Page          *int
	PageSize      *int
	SortField     *string
	SortDirection *SortDirection
	StatusFilter  *string
	SearchText    *string
}

// Merge applies p on top of v and normalizes the result.
func (v ViewState) Merge(p ViewPatch) ViewState {
	if p.Page != nil {
		v.Page = *p.Page
	}
	if p.PageSize != nil {
		v.PageSize = *p.PageSize
	}
	if p.SortField != nil {
		v.SortField = *p.SortField
	}
	if p.SortDirection != nil {
		v.SortDirection = *p.SortDirection
	}
	if p.StatusFilter != nil {
		v.StatusFilter = *p.StatusFilter
	}
	if p.SearchText != nil {
		v.SearchText = *p.SearchText
	}
	return v.normalize()
}

func (v ViewState) normalize() ViewState {
	if v.Page < 1 {
		v.Page = DefaultPage
	}
	if !slices.Contains(PageSizeOptions, v.PageSize) {
		v.PageSize = DefaultPageSize
	}
	if _, ok := sortFields[v.SortField]; !ok {
		v.SortField = DefaultSortField
	}
	if v.SortDirection != SortAsc && v.SortDirection != SortDesc {
		v.SortDirection = DefaultSortDirection
	}
	if st, ok := models.ParseOrderStatus(v.StatusFilter); ok {
		v.StatusFilter = string(st)
	} else {
		v.StatusFilter = models.StatusFilterAll
	}
	return v
}

// sortFields maps a sortable column to an ascending comparator.
var sortFields = map[string]func(a, b *models.Order) int{
	"id":           func(a, b *models.Order) int { return compareInt(a.ID, b.ID) },
	"number":       func(a, b *models.Order) int { return strings.Compare(a.Number, b.Number) },
	"customerName": func(a, b *models.Order) int { return compareFold(a.CustomerName, b.CustomerName) },
	"status":       func(a, b *models.Order) int { return strings.Compare(string(a.Status), string(b.Status)) },
	"total":        func(a, b *models.Order) int { return compareFloat(a.Total, b.Total) },
	"createdAt":    func(a, b *models.Order) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// SortFields returns the sortable column names.
func SortFields() []string {
	out := make([]string, 0, len(sortFields))
	for f := range sortFields {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
