package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNegativeStock is returned by AdjustStock when the change would take
// the product's stock below zero. Nothing is written in that case.
var ErrNegativeStock = errors.New("stock would become negative")

const DefaultPerPage = 10

// Page is a 1-based page request
type Page struct {
	Number  int
	PerPage int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	return p
}

func (p Page) Offset() int {
	p = p.normalize()
	return (p.Number - 1) * p.PerPage
}

// Paginated is a page of rows plus the totals clients need to render pagers
type Paginated[T any] struct {
	Data        []T   `json:"data"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

// paginate counts the filtered query, then loads the requested page into a
// Paginated result. The query must not carry Order/Limit yet when counted.
func paginate[T any](query *gorm.DB, page Page, order string, preload ...string) (*Paginated[T], error) {
	page = page.normalize()

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	rows := make([]T, 0, page.PerPage)
	q := query.Session(&gorm.Session{})
	for _, p := range preload {
		q = q.Preload(p)
	}
	if err := q.Order(order).Limit(page.PerPage).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return nil, err
	}

	lastPage := int((total + int64(page.PerPage) - 1) / int64(page.PerPage))
	if lastPage < 1 {
		lastPage = 1
	}

	return &Paginated[T]{
		Data:        rows,
		CurrentPage: page.Number,
		PerPage:     page.PerPage,
		Total:       total,
		LastPage:    lastPage,
	}, nil
}

// DateRange filters on created_at. To is exclusive.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (d DateRange) apply(q *gorm.DB, column string) *gorm.DB {
	if d.From != nil {
		q = q.Where(column+" >= ?", *d.From)
	}
	if d.To != nil {
		q = q.Where(column+" < ?", *d.To)
	}
	return q
}
