package domain

import "time"

// Book 单副本馆藏；Available 为派生状态：不存在未归还借阅时为 true
type Book struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	Title     string    `gorm:"size:255;not null;index" json:"title"`
	Author    string    `gorm:"size:255;not null" json:"author"`
	ISBN      string    `gorm:"uniqueIndex;size:13;not null" json:"isbn"`
	PageCount int       `gorm:"not null" json:"page_count"`
	Available bool      `gorm:"not null;default:true;index" json:"availability"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Book) TableName() string { return "books" }
