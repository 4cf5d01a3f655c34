package handler

import (
	"context"
	"encoding/json"
	"time"

	"own-ai-chat/internal/constant"
	"own-ai-chat/internal/dto"
	"own-ai-chat/internal/pkg/logger"
	"own-ai-chat/internal/pkg/serverutils"
	"own-ai-chat/internal/service"
	internalWS "own-ai-chat/internal/websocket"
	"own-ai-chat/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const joinTimeout = 5 * time.Second

var (
	errInvalidFrame = apperr.New(apperr.InvalidPayload, "realtime.frame", "malformed frame")
	errTooManySends = apperr.New(apperr.RateLimited, "realtime.send", "too many messages, slow down")
)

// SendLimiter throttles send_message per user.
type SendLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RealtimeHandler relays websocket frames to the room registry and the
// orchestrator, and relays their failures back as error frames.
type RealtimeHandler struct {
	hub          *internalWS.Hub
	chats        service.IChatService
	orchestrator service.IOrchestrator
	limiter      SendLimiter
	jwtSecret    string
	logger       logger.ILogger
}

func NewRealtimeHandler(
	hub *internalWS.Hub,
	chats service.IChatService,
	orchestrator service.IOrchestrator,
	limiter SendLimiter,
	jwtSecret string,
	log logger.ILogger,
) *RealtimeHandler {
	return &RealtimeHandler{
		hub:          hub,
		chats:        chats,
		orchestrator: orchestrator,
		limiter:      limiter,
		jwtSecret:    jwtSecret,
		logger:       log,
	}
}

func (h *RealtimeHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.ServeWs)
}

// ServeWs authenticates the handshake and hands the connection to the hub.
func (h *RealtimeHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket handshake, so the query comes first.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.TokenFromRequest(c)
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
	}

	userID, err := serverutils.ParseUserToken(tokenStr, h.jwtSecret)
	if err != nil {
		h.logger.Warn("RealtimeHandler", "Invalid token in handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("RealtimeHandler", "Session started", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID, h)
		h.logger.Info("RealtimeHandler", "Session ended", map[string]interface{}{"user_id": userID})
	})(c)
}

// HandleFrame runs on the connection's read goroutine. Joins complete before
// the next frame is read so that a send right after a join sees the membership.
func (h *RealtimeHandler) HandleFrame(c *internalWS.Client, data []byte) {
	var frame dto.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.sendError(c, "", errInvalidFrame)
		return
	}

	switch frame.Type {
	case constant.EventJoinRoom:
		h.joinRoom(c, frame)
	case constant.EventSendMessage:
		h.sendMessage(c, frame)
	default:
		h.sendError(c, frame.ChatId, errInvalidFrame)
	}
}

func (h *RealtimeHandler) joinRoom(c *internalWS.Client, frame dto.InboundFrame) {
	chatID, err := uuid.Parse(frame.ChatId)
	if err != nil {
		h.sendError(c, frame.ChatId, errInvalidFrame)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()
	if err := h.chats.CheckOwnership(ctx, c.UserID, chatID); err != nil {
		h.sendError(c, frame.ChatId, err)
		return
	}

	if !h.hub.Rooms.Join(c, chatID) {
		h.logger.Debug("RealtimeHandler", "Join on closed connection ignored", map[string]interface{}{"user_id": c.UserID, "chat_id": chatID})
		return
	}
	h.logger.Debug("RealtimeHandler", "Joined room", map[string]interface{}{"user_id": c.UserID, "chat_id": chatID})
}

func (h *RealtimeHandler) sendMessage(c *internalWS.Client, frame dto.InboundFrame) {
	chatID, err := uuid.Parse(frame.ChatId)
	if err != nil {
		h.sendError(c, frame.ChatId, errInvalidFrame)
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(context.Background(), c.UserID.String())
		if err != nil {
			h.logger.Warn("RealtimeHandler", "Rate limiter unavailable", map[string]interface{}{"error": err})
		}
		if !allowed {
			h.sendError(c, frame.ChatId, errTooManySends)
			return
		}
	}

	h.orchestrator.Submit(chatID, c.UserID, frame.Content, func(res *service.TurnResult, err error) {
		if err == nil {
			return
		}
		if res != nil && res.RoomNotified {
			// The room already heard about it; only tell this connection if it is elsewhere.
			if room, ok := h.hub.Rooms.RoomOf(c); ok && room == chatID {
				return
			}
		}
		h.sendError(c, frame.ChatId, err)
	})
}

func (h *RealtimeHandler) sendError(c *internalWS.Client, chatID string, cause error) {
	reason := apperr.Reason(cause)
	data, err := json.Marshal(dto.ErrorEvent{
		Type:    constant.EventError,
		ChatId:  chatID,
		Reason:  reason,
		Message: apperr.Message(cause),
	})
	if err != nil {
		return
	}
	if !c.Deliver(data) {
		h.logger.Warn("RealtimeHandler", "Dropped error frame", map[string]interface{}{"user_id": c.UserID, "reason": reason})
	}
}
