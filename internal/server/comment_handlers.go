package server

import (
	"commentboard/internal/models"
	"commentboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CommentRequest is the body accepted by create, full update and partial update.
// Any "id" in the body is ignored.
type CommentRequest struct {
	Author *string        `json:"author"`
	Text   *string        `json:"text"`
	Date   *string        `json:"date"`
	Likes  *int           `json:"likes"`
	Image  NullableString `json:"image" swaggertype:"string"`
}

func (r CommentRequest) input() service.CommentInput {
	return service.CommentInput{
		Author:   r.Author,
		Text:     r.Text,
		Date:     r.Date,
		Likes:    r.Likes,
		Image:    r.Image.Value,
		ImageSet: r.Image.Set,
	}
}

func parseCommentRequest(c *fiber.Ctx) (CommentRequest, error) {
	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return req, errResponseWritten
	}
	return req, nil
}

// ListComments handles GET /api/comments
// @Summary List comments
// @Description Return every comment ordered by id.
// @Tags comments
// @Produce json
// @Success 200 {array} models.Comment
// @Failure 500 {object} models.ErrorResponse
// @Router /comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	comments, err := s.commentService.ListComments(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// GetComment handles GET /api/comments/:id
// @Summary Retrieve a comment
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.GetComment(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// CreateComment handles POST /api/comments
// @Summary Create a comment
// @Description Author defaults to "Anonymous" and date to the current time.
// @Tags comments
// @Accept json
// @Produce json
// @Param request body CommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 429 {object} object{error=string}
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	req, err := parseCommentRequest(c)
	if err != nil {
		return nil
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ReplaceComment handles PUT /api/comments/:id
// @Summary Replace a comment
// @Description Author and text are required. Omitted likes and image reset to 0 and null; an omitted date is kept.
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body CommentRequest true "Comment"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [put]
func (s *Server) ReplaceComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := parseCommentRequest(c)
	if err != nil {
		return nil
	}

	comment, err := s.commentService.ReplaceComment(c.UserContext(), id, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// PatchComment handles PATCH /api/comments/:id
// @Summary Partially update a comment
// @Description Only the fields present in the body change.
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body CommentRequest true "Fields to change"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [patch]
func (s *Server) PatchComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := parseCommentRequest(c)
	if err != nil {
		return nil
	}

	comment, err := s.commentService.PatchComment(c.UserContext(), id, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete a comment
// @Tags comments
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
