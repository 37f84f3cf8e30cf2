// Package models contains the Comment entity and the API error envelope.
package models

import "time"

// Field limits enforced by the service layer.
const (
	MaxAuthorLen = 255
	MaxTextLen   = 10000
)

// DefaultAuthor is used when a comment is created over the API without an author.
const DefaultAuthor = "Anonymous"

// Comment is a single comment, keyed by an externally supplied or auto-assigned ID.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Author    string    `gorm:"size:255;not null" json:"author"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	Image     *string   `gorm:"size:2048" json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name independently of the naming strategy.
func (Comment) TableName() string {
	return "comments"
}
