package models

// PaginationMeta — метаданные постраничного списка.
//
// Инварианты: TotalPages = ceil(Total/Limit), HasNextPage = Page < TotalPages.
type PaginationMeta struct {
	Total           int   `json:"total"`
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     *bool `json:"hasNextPage,omitempty"`
	HasPreviousPage *bool `json:"hasPreviousPage,omitempty"`
}

// NewPaginationMeta собирает метаданные из total/page/limit.
// При limit <= 0 страниц нет: TotalPages = 0.
func NewPaginationMeta(total, page, limit int) PaginationMeta {
	m := PaginationMeta{
		Total: total,
		Page:  page,
		Limit: limit,
	}

	if limit > 0 && total > 0 {
		m.TotalPages = (total + limit - 1) / limit
	}

	next := page < m.TotalPages
	prev := page > 1
	m.HasNextPage = &next
	m.HasPreviousPage = &prev

	return m
}

// HasNext — значение hasNextPage; если бэкенд его не прислал, считается из Page/TotalPages.
func (m PaginationMeta) HasNext() bool {
	if m.HasNextPage != nil {
		return *m.HasNextPage
	}

	return m.Page < m.TotalPages
}

// HasPrevious — значение hasPreviousPage с тем же правилом вычисления.
func (m PaginationMeta) HasPrevious() bool {
	if m.HasPreviousPage != nil {
		return *m.HasPreviousPage
	}

	return m.Page > 1
}
