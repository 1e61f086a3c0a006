package http

import (
	"encoding/json"
	"net/http"

	"edu-arena/internal/app"
	"edu-arena/internal/notify"
	"edu-arena/internal/observability"
	"edu-arena/internal/quiz"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GameHandler plays one quiz game per websocket connection.
type GameHandler struct {
	service *app.GameService
	log     logrus.FieldLogger
}

func NewGameHandler(service *app.GameService, log logrus.FieldLogger) *GameHandler {
	return &GameHandler{service: service, log: log}
}

type selectPayload struct {
	Option int `json:"option"`
}

type lifelinePayload struct {
	Lifeline quiz.Lifeline `json:"lifeline"`
}

type exitPayload struct {
	Confirmed bool `json:"confirmed"`
}

type startedPayload struct {
	GameID string `json:"gameId"`
	SetID  string `json:"setId"`
}

// hiddenIndex replaces the correct index until the answer is revealed.
const hiddenIndex = -1

// publicState strips the answer from snapshots sent to the player.
func publicState(s quiz.Snapshot) quiz.Snapshot {
	if !s.Revealed && s.Phase != quiz.PhaseFinished {
		s.Question.CorrectIndex = hiddenIndex
	}
	return s
}

// ServeWS starts a game on the requested set and wires the socket into it.
func (h *GameHandler) ServeWS(c *gin.Context) {
	setID := c.Query("setId")
	userID := c.GetString(userIDKey)
	if setID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing setId"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	notices := notify.NewChannelNotifier(8)
	game, err := h.service.Start(c.Request.Context(), setID, userID, notices)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer h.service.End(game.ID)

	observability.IncWSActive("game")
	defer observability.DecWSActive("game")

	updates, cancel := game.Engine().Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).WithField("game_id", game.ID).Debug("ws write error")
				return
			}
		}
	}()

	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			var msg outboundMessage[any]
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				msg = outboundMessage[any]{Type: "state", Payload: publicState(snap)}
			case note := <-notices.C():
				msg = outboundMessage[any]{Type: "notice", Payload: note}
			case <-closeSignals:
				return
			}
			select {
			case send <- msg:
			case <-closeSignals:
				return
			case <-writerDone:
				return
			}
		}
	}()

	enqueue(outboundMessage[any]{Type: "started", Payload: startedPayload{GameID: game.ID, SetID: game.SetID}})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		observability.IncWSEvent("game", inbound.Type)
		if msg, ok := h.handle(game, inbound); ok {
			enqueue(msg)
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle applies one player command. State changes reach the client through
// the engine subscription; only replies and errors are returned here.
func (h *GameHandler) handle(game *app.Game, inbound inboundMessage) (outboundMessage[any], bool) {
	engine := game.Engine()
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid select payload"), true
		}
		if err := engine.Select(payload.Option); err != nil {
			return errorMessage(err.Error()), true
		}
	case "lifeline":
		var payload lifelinePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid lifeline payload"), true
		}
		result, err := engine.UseLifeline(payload.Lifeline)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "lifeline", Payload: result}, true
	case "exit":
		var payload exitPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid exit payload"), true
		}
		if err := engine.Exit(payload.Confirmed); err != nil {
			return errorMessage(err.Error()), true
		}
	default:
		return errorMessage("unsupported message type"), true
	}
	return outboundMessage[any]{}, false
}
