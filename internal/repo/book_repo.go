package repo

import (
	"context"

	"gorm.io/gorm"

	"library-lending/internal/domain"
)

type BookFilter struct {
	Title     string `form:"title"`
	Author    string `form:"author"`
	Available *bool  `form:"availability"`
}

type BookRepo struct{ db *gorm.DB }

func NewBookRepo(db *gorm.DB) *BookRepo { return &BookRepo{db: db} }

func (r *BookRepo) WithTx(tx *gorm.DB) *BookRepo { return &BookRepo{db: tx} }

func (r *BookRepo) Create(ctx context.Context, b *domain.Book) error {
	return dupKey(r.db.WithContext(ctx).Create(b).Error, "isbn")
}

func (r *BookRepo) FindByID(ctx context.Context, id string) (*domain.Book, error) {
	var b domain.Book
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrBookNotFound)
	}
	return &b, nil
}

func (r *BookRepo) List(ctx context.Context, f BookFilter, p Page) (*Result[domain.Book], error) {
	tx := r.db.WithContext(ctx).Model(&domain.Book{})
	if f.Title != "" {
		tx = tx.Where(`LOWER(title) LIKE ? ESCAPE '!'`, likeArg(f.Title))
	}
	if f.Author != "" {
		tx = tx.Where(`LOWER(author) LIKE ? ESCAPE '!'`, likeArg(f.Author))
	}
	if f.Available != nil {
		tx = tx.Where("available = ?", *f.Available)
	}
	return paginate[domain.Book](tx, p, "title asc, id asc")
}

// Update 不接受 available 列，可借状态只由借还流程修改
func (r *BookRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	delete(fields, "available")
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&domain.Book{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return dupKey(res.Error, "isbn")
	}
	if res.RowsAffected == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (r *BookRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Book{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

// TakeAvailable 条件更新 available true→false，返回是否抢到
func (r *BookRepo) TakeAvailable(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Book{}).
		Where("id = ? AND available = ?", id, true).
		Update("available", false)
	return res.RowsAffected == 1, res.Error
}

func (r *BookRepo) MarkAvailable(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.Book{}).
		Where("id IN ?", ids).
		Update("available", true).Error
}
