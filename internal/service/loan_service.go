package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"library-lending/internal/core/cache"
	"library-lending/internal/core/events"
	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/internal/repo"
	"library-lending/pkg/utils"
)

// LoanService 借还书状态机：Available ⇄ OnLoan
//
// 借书和还书各自在一个事务里完成，串行化点是对 books / loans 行的条件更新，
// 同一本书并发借阅只有一个成功。
type LoanService struct {
	db      *gorm.DB
	r       repos
	cache   *cache.Cache
	pub     events.Publisher
	now     func() time.Time
	log     *zap.Logger
	metrics *Metrics
}

func NewLoanService(d Deps) *LoanService {
	d = d.withDefaults()
	return &LoanService{
		db:      d.DB,
		r:       reposOf(d.DB),
		cache:   d.Cache,
		pub:     d.Publisher,
		now:     d.Clock,
		log:     d.Log.Named("loan"),
		metrics: d.Metrics,
	}
}

func (s *LoanService) Borrow(ctx context.Context, actor policy.Actor, bookID string) (*domain.Loan, error) {
	if err := policy.Authorize(actor, policy.ActionBorrow, policy.On(policy.ResourceBook)); err != nil {
		return nil, err
	}
	var loan *domain.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := s.r.books.WithTx(tx)
		book, err := books.FindByID(ctx, bookID)
		if err != nil {
			return err
		}
		ok, err := books.TakeAvailable(ctx, book.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrBookUnavailable
		}
		loan = &domain.Loan{
			ID:         utils.NewID(),
			UserID:     actor.UserID,
			BookID:     book.ID,
			BorrowedAt: s.now().UTC(),
		}
		if err := s.r.loans.WithTx(tx).Create(ctx, loan); err != nil {
			return err
		}
		book.Available = false
		loan.Book = book
		return nil
	})
	s.metrics.loan("borrow", err)
	if err != nil {
		return nil, err
	}
	invalidateBooks(ctx, s.cache, bookID)
	s.publish(ctx, events.LoanBorrowed, loan)
	s.log.Info("book borrowed", zap.String("loan_id", loan.ID), zap.String("book_id", bookID), zap.String("user_id", actor.UserID))
	return loan, nil
}

func (s *LoanService) Return(ctx context.Context, actor policy.Actor, bookID string) (*domain.Loan, error) {
	if err := policy.Authorize(actor, policy.ActionReturn, policy.On(policy.ResourceBook)); err != nil {
		return nil, err
	}
	var loan *domain.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loans, books := s.r.loans.WithTx(tx), s.r.books.WithTx(tx)
		open, err := loans.FindOutstanding(ctx, actor.UserID, bookID)
		if err != nil {
			return err
		}
		at := s.now().UTC()
		ok, err := loans.MarkReturned(ctx, open.ID, at)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNoActiveLoan
		}
		if err := books.MarkAvailable(ctx, bookID); err != nil {
			return err
		}
		open.ReturnedAt = &at
		if open.Book, err = books.FindByID(ctx, bookID); err != nil {
			return err
		}
		loan = open
		return nil
	})
	s.metrics.loan("return", err)
	if err != nil {
		return nil, err
	}
	invalidateBooks(ctx, s.cache, bookID)
	s.publish(ctx, events.LoanReturned, loan)
	s.log.Info("book returned", zap.String("loan_id", loan.ID), zap.String("book_id", bookID), zap.String("user_id", actor.UserID))
	return loan, nil
}

func (s *LoanService) Get(ctx context.Context, actor policy.Actor, id string) (*domain.Loan, error) {
	if err := policy.Authorize(actor, policy.ActionRead, policy.On(policy.ResourceLoan)); err != nil {
		return nil, err
	}
	return s.r.loans.FindByID(ctx, id)
}

func (s *LoanService) List(ctx context.Context, actor policy.Actor, f repo.LoanFilter, p repo.Page) (*repo.Result[domain.Loan], error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.On(policy.ResourceLoan)); err != nil {
		return nil, err
	}
	return s.r.loans.List(ctx, f, p)
}

// Delete 管理员强制删除；未归还的借阅删除后书恢复可借
func (s *LoanService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if err := policy.Authorize(actor, policy.ActionDelete, policy.On(policy.ResourceLoan)); err != nil {
		return err
	}
	var loan *domain.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loans := s.r.loans.WithTx(tx)
		l, err := loans.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := loans.Delete(ctx, l.ID); err != nil {
			return err
		}
		if l.Outstanding() {
			if err := s.r.books.WithTx(tx).MarkAvailable(ctx, l.BookID); err != nil {
				return err
			}
		}
		loan = l
		return nil
	})
	s.metrics.loan("delete", err)
	if err != nil {
		return err
	}
	invalidateBooks(ctx, s.cache, loan.BookID)
	s.publish(ctx, events.LoanDeleted, loan)
	return nil
}

// publish 事务已提交，投递失败只记日志
func (s *LoanService) publish(ctx context.Context, typ events.Type, l *domain.Loan) {
	ev := events.LoanEvent{
		Type:       typ,
		LoanID:     l.ID,
		UserID:     l.UserID,
		BookID:     l.BookID,
		BorrowedAt: l.BorrowedAt,
		ReturnedAt: l.ReturnedAt,
		OccurredAt: s.now().UTC(),
	}
	if err := s.pub.Publish(context.WithoutCancel(ctx), ev); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("publish loan event", zap.String("type", string(typ)), zap.String("loan_id", l.ID), zap.Error(err))
	}
}
