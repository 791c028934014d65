package domain

import "time"

// Loan ReturnedAt 为 nil 表示未归还；同一本书同一时刻最多一条未归还记录
type Loan struct {
	ID         string     `gorm:"primaryKey;size:32" json:"id"`
	UserID     string     `gorm:"size:32;not null;index" json:"user_id"`
	BookID     string     `gorm:"size:32;not null;index" json:"book_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book       *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	BorrowedAt time.Time  `gorm:"not null;index" json:"borrowed_date"`
	ReturnedAt *time.Time `gorm:"index" json:"returned_date"`
}

func (Loan) TableName() string { return "loans" }

func (l *Loan) Outstanding() bool { return l.ReturnedAt == nil }

// Models 自动迁移顺序（被引用的表在前）
func Models() []any { return []any{&User{}, &Book{}, &Loan{}} }
