package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"library-lending/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page 1 起始页码；越界值归一化而不是报错
type Page struct {
	Page int `form:"page" json:"page"`
	Size int `form:"size" json:"size"`
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.Size }

type Result[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

func paginate[T any](q *gorm.DB, p Page, order string, preloads ...string) (*Result[T], error) {
	p = p.Normalize()
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	find := q.Order(order).Offset(p.Offset()).Limit(p.Size)
	for _, name := range preloads {
		find = find.Preload(name)
	}
	items := make([]T, 0, p.Size)
	if err := find.Find(&items).Error; err != nil {
		return nil, err
	}
	return &Result[T]{Items: items, Total: total, Page: p.Page, Size: p.Size}, nil
}

// dupKey 兼容未开启 TranslateError 的连接
func dupKey(err error, field string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &domain.DuplicateError{Field: field}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "duplicate key") {
		return &domain.DuplicateError{Field: field}
	}
	return err
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func likeArg(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}
