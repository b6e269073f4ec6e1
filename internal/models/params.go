package models

import (
	"net/url"
	"strconv"
)

// QueryParamError — параметр строки запроса не разобран.
type QueryParamError struct {
	Param string
	Value string
	Err   error
}

func (e *QueryParamError) Error() string {
	return e.Param + " must be an integer, got " + strconv.Quote(e.Value)
}

func (e *QueryParamError) Unwrap() error { return e.Err }

// Допустимые значения порядка сортировки.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListParams — параметры списочных эндпойнтов:
// GET /<resource>?page&limit&search&sortBy&order.
// Нулевые значения в query не попадают.
type ListParams struct {
	Page   int    `json:"page,omitempty"   validate:"omitempty,min=1"`
	Limit  int    `json:"limit,omitempty"  validate:"omitempty,min=1,max=100"`
	Search string `json:"search,omitempty" validate:"omitempty,max=200"`
	SortBy string `json:"sortBy,omitempty" validate:"omitempty,max=64"`
	Order  string `json:"order,omitempty"  validate:"omitempty,oneof=asc desc"`

	// Filters — дополнительные фильтры ресурса (status, categoryId, role...).
	Filters map[string]string `json:"-"`
}

// Values кодирует параметры в query string.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}

	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}

	if p.Search != "" {
		v.Set("search", p.Search)
	}

	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}

	if p.Order != "" {
		v.Set("order", p.Order)
	}

	for k, val := range p.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}

	return v
}

// ListParamsFromQuery разбирает query входящего запроса шлюза.
// Нечисловые page/limit возвращают *QueryParamError; остальные ключи уходят в Filters.
func ListParamsFromQuery(q url.Values) (ListParams, error) {
	var p ListParams

	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return ListParams{}, &QueryParamError{Param: "page", Value: s, Err: err}
		}

		p.Page = n
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return ListParams{}, &QueryParamError{Param: "limit", Value: s, Err: err}
		}

		p.Limit = n
	}

	p.Search = q.Get("search")
	p.SortBy = q.Get("sortBy")
	p.Order = q.Get("order")

	for k := range q {
		switch k {
		case "page", "limit", "search", "sortBy", "order":
			continue
		}

		if p.Filters == nil {
			p.Filters = make(map[string]string)
		}

		p.Filters[k] = q.Get(k)
	}

	return p, nil
}
