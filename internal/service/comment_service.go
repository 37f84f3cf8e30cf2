// Package service contains the business rules for comments.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"commentboard/internal/cache"
	"commentboard/internal/database"
	"commentboard/internal/middleware"
	"commentboard/internal/models"
	"commentboard/internal/notifications"
	"commentboard/internal/observability"
	"commentboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const maxImageLen = 2048

type CommentService struct {
	commentRepo repository.CommentRepository
	notifier    *notifications.Notifier
	cacheTTL    time.Duration
	now         func() time.Time
}

// CommentInput carries the client-supplied fields of a write. Nil means the
// field was absent; ImageSet distinguishes an explicit null image from an
// absent one.
type CommentInput struct {
	Author   *string
	Text     *string
	Date     *string
	Likes    *int
	Image    *string
	ImageSet bool
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	notifier *notifications.Notifier,
	cacheTTL time.Duration,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		notifier:    notifier,
		cacheTTL:    cacheTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *CommentService) ListComments(ctx context.Context) (comments []*models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService.ListComments")
	defer func() { observability.EndSpan(span, err) }()

	comments = []*models.Comment{}
	err = cache.CacheAside(ctx, cache.CommentsListKey, &comments, s.cacheTTL, func() error {
		list, err := s.commentRepo.List(ctx)
		if err != nil {
			return err
		}
		if list != nil {
			comments = list
		}
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (s *CommentService) GetComment(ctx context.Context, id uint) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService.GetComment", attribute.Int64("comment.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	comment = &models.Comment{}
	err = cache.CacheAside(ctx, cache.CommentKey(id), comment, s.cacheTTL, func() error {
		found, err := s.commentRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		*comment = *found
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return comment, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in CommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService.CreateComment")
	defer func() { observability.EndSpan(span, err) }()

	if in.Text == nil {
		return nil, models.NewValidationError("text is required")
	}

	comment = &models.Comment{
		Author: models.DefaultAuthor,
		Date:   s.now(),
	}
	if err := s.apply(comment, in); err != nil {
		return nil, err
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, mapRepoError(err, comment.ID)
	}

	s.afterWrite(ctx, "create", notifications.EventCommentCreated, comment.ID, comment)
	return comment, nil
}

// ReplaceComment performs a full update: author and text are required, omitted
// likes and image fall back to their defaults, an omitted date is kept.
func (s *CommentService) ReplaceComment(ctx context.Context, id uint, in CommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService.ReplaceComment", attribute.Int64("comment.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	if in.Author == nil {
		return nil, models.NewValidationError("author is required")
	}
	if in.Text == nil {
		return nil, models.NewValidationError("text is required")
	}

	comment, err = s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}

	if in.Likes == nil {
		comment.Likes = 0
	}
	if !in.ImageSet {
		comment.Image = nil
	}
	if err := s.apply(comment, in); err != nil {
		return nil, err
	}

	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, mapRepoError(err, id)
	}

	s.afterWrite(ctx, "replace", notifications.EventCommentUpdated, id, comment)
	return comment, nil
}

// PatchComment changes only the fields present in in.
func (s *CommentService) PatchComment(ctx context.Context, id uint, in CommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService.PatchComment", attribute.Int64("comment.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	comment, err = s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}

	if err := s.apply(comment, in); err != nil {
		return nil, err
	}

	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, mapRepoError(err, id)
	}

	s.afterWrite(ctx, "patch", notifications.EventCommentUpdated, id, comment)
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, id uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService.DeleteComment", attribute.Int64("comment.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.commentRepo.Delete(ctx, id); err != nil {
		return mapRepoError(err, id)
	}

	s.afterWrite(ctx, "delete", notifications.EventCommentDeleted, id, nil)
	return nil
}

// apply validates the present fields of in and copies them onto comment.
func (s *CommentService) apply(comment *models.Comment, in CommentInput) error {
	if in.Author != nil {
		author := strings.TrimSpace(*in.Author)
		if author == "" {
			return models.NewValidationError("author may not be blank")
		}
		if utf8.RuneCountInString(author) > models.MaxAuthorLen {
			return models.NewValidationError(fmt.Sprintf("author too long (max %d characters)", models.MaxAuthorLen))
		}
		comment.Author = author
	}

	if in.Text != nil {
		if strings.TrimSpace(*in.Text) == "" {
			return models.NewValidationError("text may not be blank")
		}
		if utf8.RuneCountInString(*in.Text) > models.MaxTextLen {
			return models.NewValidationError(fmt.Sprintf("text too long (max %d characters)", models.MaxTextLen))
		}
		comment.Text = *in.Text
	}

	if in.Date != nil {
		date, err := models.ParseCommentDate(*in.Date)
		if err != nil {
			return &models.AppError{Code: models.CodeValidation, Message: "date is not a recognizable date", Err: err}
		}
		comment.Date = date
	}

	if in.Likes != nil {
		if *in.Likes < 0 {
			return models.NewValidationError("likes must be zero or greater")
		}
		comment.Likes = *in.Likes
	}

	if in.ImageSet {
		if in.Image != nil && len(*in.Image) > maxImageLen {
			return models.NewValidationError(fmt.Sprintf("image too long (max %d characters)", maxImageLen))
		}
		comment.Image = in.Image
	}

	return nil
}

func (s *CommentService) afterWrite(ctx context.Context, op, eventType string, id uint, comment *models.Comment) {
	observability.CommentWrites.WithLabelValues(op).Inc()
	cache.InvalidateComments(ctx, id)

	if err := s.notifier.PublishCommentEvent(ctx, notifications.CommentEvent{
		Type:      eventType,
		CommentID: id,
		Comment:   comment,
	}); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish comment event", "type", eventType, "comment_id", id, "error", err)
	}
}

func mapRepoError(err error, id uint) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError("Comment", id)
	case database.IsDuplicateKey(err):
		return models.NewConflictError(fmt.Sprintf("Comment with ID %d already exists", id), err)
	default:
		return models.NewInternalError(err)
	}
}
