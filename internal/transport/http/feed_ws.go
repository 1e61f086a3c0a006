package http

import (
	"context"
	"net/http"

	"edu-arena/internal/app"
	"edu-arena/internal/chatsync"
	"edu-arena/internal/domain"
	"edu-arena/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// FeedHandler streams a room's change events over a websocket.
type FeedHandler struct {
	chat *app.ChatService
	feed chatsync.Subscriber
	log  logrus.FieldLogger
}

func NewFeedHandler(chat *app.ChatService, feed chatsync.Subscriber, log logrus.FieldLogger) *FeedHandler {
	return &FeedHandler{chat: chat, feed: feed, log: log}
}

// ServeWS sends {"type":"change","payload":ChangeEvent} frames until either
// side goes away. Inbound frames are ignored.
func (h *FeedHandler) ServeWS(c *gin.Context) {
	room := c.Param("room")
	if _, err := h.chat.Room(room); err != nil {
		abortWithError(c, err)
		return
	}

	ctx, span := observability.StartSpan(c.Request.Context(), "ws.feed.handshake", attribute.String("room", room))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := h.feed.Subscribe(ctx, room)
	if err != nil {
		observability.EndSpan(span, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed unavailable"})
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	observability.EndSpan(span, err)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	observability.IncWSActive("feed")
	defer observability.DecWSActive("feed")

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.ChangeEvent]{Type: "change", Payload: ev}); err != nil {
				h.log.WithError(err).WithField("room", room).Debug("ws write error")
				return
			}
			observability.IncWSEvent("feed", string(ev.Kind))
		case <-ctx.Done():
			return
		}
	}
}
