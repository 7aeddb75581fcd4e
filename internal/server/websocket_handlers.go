package server

import (
	"errors"
	"log/slog"

	"inkwell/internal/cache"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WSTicketResponse is returned by POST /api/ws/ticket.
type WSTicketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expiresIn"`
}

var errFeedUnavailable = &models.AppError{Code: "SERVICE_UNAVAILABLE", Message: "Live feed is unavailable"}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a websocket ticket
// @Description Returns a single-use ticket, valid for 30 seconds, to pass as ?ticket= on /api/ws.
// @Tags realtime
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Envelope{data=WSTicketResponse}
// @Failure 401 {object} models.Envelope
// @Failure 503 {object} models.Envelope
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if !s.featureFlags.Enabled(featureflags.LiveFeed, user.ID) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.Envelope{
			Code:    errFeedUnavailable.Code,
			Message: errFeedUnavailable.Message,
		})
	}

	ticket, err := cache.IssueWSTicket(c.UserContext(), user.ID)
	if errors.Is(err, cache.ErrUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.Envelope{
			Code:    errFeedUnavailable.Code,
			Message: errFeedUnavailable.Message,
		})
	}
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return models.RespondWithData(c, fiber.StatusOK, "", WSTicketResponse{
		Ticket:    ticket,
		ExpiresIn: int(cache.WSTicketTTL.Seconds()),
	})
}

// wsUpgrade spends the ticket and admits the upgrade. Non-websocket requests
// get 426.
func (s *Server) wsUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}

	userID, err := cache.ConsumeWSTicket(c.UserContext(), c.Query("ticket"))
	if err != nil {
		if !errors.Is(err, cache.ErrTicketInvalid) && !errors.Is(err, cache.ErrUnavailable) {
			middleware.Logger.ErrorContext(c.UserContext(), "ticket lookup failed", slog.String("error", err.Error()))
		}
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
	}

	// The ticket proves who connected a moment ago; the account must still be
	// active now.
	user, err := s.authChain.Resolve(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	middleware.SetIdentity(c, user)
	return c.Next()
}

// WebsocketHandler serves GET /api/ws: the live feed of post events. It runs
// after wsUpgrade has resolved the caller.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals(middleware.LocalUserID).(uint)
		if !ok {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(uid)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.Unregister(client)

		// The connection is released when this handler returns, so wait for
		// the writer to finish with it first.
		written := make(chan struct{})
		go func() {
			defer close(written)
			client.WritePump()
		}()
		client.ReadPump()
		<-written
	})
}
