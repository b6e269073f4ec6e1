// Package models описывает транспортные структуры REST API GuanaVive:
// конверт ответа, метаданные пагинации, параметры списков и DTO ресурсов.
package models

// Response — единый конверт ответа бэкенда {success, message?, data?, meta?}.
// Meta присутствует только у постраничных списков.
type Response[T any] struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    T               `json:"data,omitempty"`
	Meta    *PaginationMeta `json:"meta,omitempty"`
}

// Paginated сообщает, пришли ли в ответе метаданные пагинации.
func (r *Response[T]) Paginated() bool {
	return r != nil && r.Meta != nil
}
