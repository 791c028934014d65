package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"library-lending/internal/domain"
)

// LoanFilter 时间区间两端均为闭区间
type LoanFilter struct {
	UserID         string     `form:"user"`
	BookID         string     `form:"book"`
	BorrowedAfter  *time.Time `form:"borrowed_date_after" time_format:"2006-01-02T15:04:05Z07:00"`
	BorrowedBefore *time.Time `form:"borrowed_date_before" time_format:"2006-01-02T15:04:05Z07:00"`
	ReturnedAfter  *time.Time `form:"returned_date_after" time_format:"2006-01-02T15:04:05Z07:00"`
	ReturnedBefore *time.Time `form:"returned_date_before" time_format:"2006-01-02T15:04:05Z07:00"`
	IsActive       *bool      `form:"is_active"`
}

// LoanColumn 按用户或按书聚合借阅记录
type LoanColumn string

const (
	ByUser LoanColumn = "user_id"
	ByBook LoanColumn = "book_id"
)

type LoanRepo struct{ db *gorm.DB }

func NewLoanRepo(db *gorm.DB) *LoanRepo { return &LoanRepo{db: db} }

func (r *LoanRepo) WithTx(tx *gorm.DB) *LoanRepo { return &LoanRepo{db: tx} }

func (r *LoanRepo) Create(ctx context.Context, l *domain.Loan) error {
	return r.db.WithContext(ctx).Omit("User", "Book").Create(l).Error
}

func (r *LoanRepo) FindByID(ctx context.Context, id string) (*domain.Loan, error) {
	var l domain.Loan
	if err := r.db.WithContext(ctx).Preload("User").Preload("Book").First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrLoanNotFound)
	}
	return &l, nil
}

func (r *LoanRepo) FindOutstanding(ctx context.Context, userID, bookID string) (*domain.Loan, error) {
	var l domain.Loan
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ? AND returned_at IS NULL", userID, bookID).
		Order("borrowed_at asc").
		First(&l).Error
	if err != nil {
		return nil, notFound(err, domain.ErrNoActiveLoan)
	}
	return &l, nil
}

// MarkReturned 条件更新 returned_at NULL→at，返回是否由本次调用关闭
func (r *LoanRepo) MarkReturned(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Loan{}).
		Where("id = ? AND returned_at IS NULL", id).
		Update("returned_at", at)
	return res.RowsAffected == 1, res.Error
}

func (r *LoanRepo) List(ctx context.Context, f LoanFilter, p Page) (*Result[domain.Loan], error) {
	tx := r.db.WithContext(ctx).Model(&domain.Loan{})
	if f.UserID != "" {
		tx = tx.Where("user_id = ?", f.UserID)
	}
	if f.BookID != "" {
		tx = tx.Where("book_id = ?", f.BookID)
	}
	if f.BorrowedAfter != nil {
		tx = tx.Where("borrowed_at >= ?", f.BorrowedAfter.UTC())
	}
	if f.BorrowedBefore != nil {
		tx = tx.Where("borrowed_at <= ?", f.BorrowedBefore.UTC())
	}
	if f.ReturnedAfter != nil {
		tx = tx.Where("returned_at >= ?", f.ReturnedAfter.UTC())
	}
	if f.ReturnedBefore != nil {
		tx = tx.Where("returned_at <= ?", f.ReturnedBefore.UTC())
	}
	if f.IsActive != nil {
		if *f.IsActive {
			tx = tx.Where("returned_at IS NULL")
		} else {
			tx = tx.Where("returned_at IS NOT NULL")
		}
	}
	return paginate[domain.Loan](tx, p, "borrowed_at desc, id desc", "User", "Book")
}

func (r *LoanRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Loan{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func (r *LoanRepo) CountBy(ctx context.Context, col LoanColumn, id string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Loan{}).Where(string(col)+" = ?", id).Count(&n).Error
	return n, err
}

func (r *LoanRepo) OutstandingBookIDs(ctx context.Context, col LoanColumn, id string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Loan{}).
		Where(string(col)+" = ? AND returned_at IS NULL", id).
		Pluck("book_id", &ids).Error
	return ids, err
}

func (r *LoanRepo) DeleteBy(ctx context.Context, col LoanColumn, id string) error {
	return r.db.WithContext(ctx).Where(string(col)+" = ?", id).Delete(&domain.Loan{}).Error
}
