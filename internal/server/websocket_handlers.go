package server

import (
	"commentboard/internal/middleware"
	"commentboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireLiveFeed rejects live-feed requests when Redis is unavailable or the
// request is not a websocket upgrade.
func (s *Server) requireLiveFeed(c *fiber.Ctx) error {
	if s.hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "live feed unavailable",
		})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// CommentFeedHandler handles GET /api/ws/comments. Each connection receives
// every comment event as a JSON text message.
func (s *Server) CommentFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.hub.Register(conn)
		if err != nil {
			middleware.Logger.Warn("live feed registration rejected", "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("live feed client connected", "client", client.ID)

		go client.WritePump()
		client.ReadPump()
	})
}
