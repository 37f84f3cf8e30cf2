// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"commentboard/internal/models"
	"commentboard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const commentsTable = "comments"

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	List(ctx context.Context) ([]*models.Comment, error)
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, comment *models.Comment) error
	CreateIfAbsent(ctx context.Context, comment *models.Comment) (bool, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
	WithTx(tx *gorm.DB) CommentRepository
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) WithTx(tx *gorm.DB) CommentRepository {
	return &commentRepository{db: tx}
}

func (r *commentRepository) List(ctx context.Context) ([]*models.Comment, error) {
	defer observability.TrackQuery("list", commentsTable)()

	var comments []*models.Comment
	err := r.db.WithContext(ctx).Order("id asc").Find(&comments).Error
	return comments, err
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	defer observability.TrackQuery("get", commentsTable)()

	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) Exists(ctx context.Context, id uint) (bool, error) {
	defer observability.TrackQuery("exists", commentsTable)()

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", commentsTable)()

	return r.db.WithContext(ctx).Create(comment).Error
}

// CreateIfAbsent inserts comment unless a row with the same ID already exists.
// It reports whether a row was inserted; an existing row is left untouched.
func (r *commentRepository) CreateIfAbsent(ctx context.Context, comment *models.Comment) (bool, error) {
	defer observability.TrackQuery("create_if_absent", commentsTable)()

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(comment)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Update writes every mutable column of comment; zero values are written too.
func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("update", commentsTable)()

	res := r.db.WithContext(ctx).
		Model(comment).
		Select("Author", "Text", "Date", "Likes", "Image").
		Updates(comment)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", commentsTable)()

	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
