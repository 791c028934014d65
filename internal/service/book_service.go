package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"library-lending/internal/core/cache"
	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/internal/repo"
	"library-lending/pkg/utils"
)

type BookInput struct {
	Title     string `json:"title" binding:"required,max=255"`
	Author    string `json:"author" binding:"required,max=255"`
	ISBN      string `json:"isbn" binding:"required,min=10,max=13,alphanum"`
	PageCount int    `json:"page_count" binding:"required,gt=0"`
}

// BookPatch availability 不在可写字段内
type BookPatch struct {
	Title     *string `json:"title" binding:"omitempty,min=1,max=255"`
	Author    *string `json:"author" binding:"omitempty,min=1,max=255"`
	ISBN      *string `json:"isbn" binding:"omitempty,min=10,max=13,alphanum"`
	PageCount *int    `json:"page_count" binding:"omitempty,gt=0"`
}

func (p BookPatch) columns() map[string]any {
	m := map[string]any{}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Author != nil {
		m["author"] = *p.Author
	}
	if p.ISBN != nil {
		m["isbn"] = *p.ISBN
	}
	if p.PageCount != nil {
		m["page_count"] = *p.PageCount
	}
	return m
}

type BookService struct {
	db     *gorm.DB
	r      repos
	cache  *cache.Cache
	ttl    time.Duration
	policy domain.DeletePolicy
	log    *zap.Logger
}

func NewBookService(d Deps) *BookService {
	d = d.withDefaults()
	return &BookService{
		db:     d.DB,
		r:      reposOf(d.DB),
		cache:  d.Cache,
		ttl:    d.BookTTL,
		policy: d.Policies.BookLoans,
		log:    d.Log.Named("book"),
	}
}

func (s *BookService) List(ctx context.Context, actor policy.Actor, f repo.BookFilter, p repo.Page) (*repo.Result[domain.Book], error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.On(policy.ResourceBook)); err != nil {
		return nil, err
	}
	return s.r.books.List(ctx, f, p)
}

// Get 读穿缓存；未找到不缓存
func (s *BookService) Get(ctx context.Context, actor policy.Actor, id string) (*domain.Book, error) {
	if err := policy.Authorize(actor, policy.ActionRead, policy.On(policy.ResourceBook)); err != nil {
		return nil, err
	}
	return cache.GetOrLoadJSON(s.cache, ctx, bookKey(id), s.ttl, func(ctx context.Context) (*domain.Book, error) {
		return s.r.books.FindByID(ctx, id)
	})
}

func (s *BookService) Create(ctx context.Context, actor policy.Actor, in BookInput) (*domain.Book, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.On(policy.ResourceBook)); err != nil {
		return nil, err
	}
	b := &domain.Book{
		ID:        utils.NewID(),
		Title:     in.Title,
		Author:    in.Author,
		ISBN:      in.ISBN,
		PageCount: in.PageCount,
		Available: true,
	}
	if err := s.r.books.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookService) Update(ctx context.Context, actor policy.Actor, id string, in BookPatch) (*domain.Book, error) {
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.On(policy.ResourceBook)); err != nil {
		return nil, err
	}
	if _, err := s.r.books.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.r.books.Update(ctx, id, in.columns()); err != nil {
		return nil, err
	}
	invalidateBooks(ctx, s.cache, id)
	return s.r.books.FindByID(ctx, id)
}

// Delete cascade 连同借阅记录一起删除；restrict 有借阅记录时拒绝
func (s *BookService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if err := policy.Authorize(actor, policy.ActionDelete, policy.On(policy.ResourceBook)); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books, loans := s.r.books.WithTx(tx), s.r.loans.WithTx(tx)
		if _, err := books.FindByID(ctx, id); err != nil {
			return err
		}
		switch s.policy {
		case domain.DeleteRestrict:
			n, err := loans.CountBy(ctx, repo.ByBook, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrHasLoans
			}
		case domain.DeleteCascade:
			if err := loans.DeleteBy(ctx, repo.ByBook, id); err != nil {
				return err
			}
		}
		return books.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	invalidateBooks(ctx, s.cache, id)
	s.log.Info("book deleted", zap.String("book_id", id), zap.Stringer("policy", s.policy))
	return nil
}

func (s *BookService) DeletePolicy() domain.DeletePolicy { return s.policy }
