package http

import (
	"net/http"

	"edu-arena/internal/app"
	"edu-arena/internal/chatsync"
	"edu-arena/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterDeps are the services exposed over HTTP.
type RouterDeps struct {
	Chat  *app.ChatService
	Games *app.GameService
	Feed  chatsync.Subscriber
	// MediaDir, when set, is served under /media.
	MediaDir string
	Log      logrus.FieldLogger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(LoggingMiddleware(deps.Log))

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(observability.Handler()))
	if deps.MediaDir != "" {
		router.Static("/media", deps.MediaDir)
	}

	api := router.Group("/", UserMiddleware())

	chat := NewChatHandler(deps.Chat)
	api.GET("/rooms", chat.ListRooms)
	api.GET("/rooms/:room/messages", chat.ListMessages)
	api.POST("/rooms/:room/messages", chat.PostMessage)
	api.GET("/messages/:id", chat.GetMessage)
	api.PATCH("/messages/:id/likes", chat.UpdateLikes)
	api.DELETE("/messages/:id", chat.DeleteMessage)
	api.POST("/media", chat.UploadMedia)
	api.GET("/profiles/:id", chat.GetProfile)
	api.PUT("/profiles/:id", chat.PutProfile)

	feed := NewFeedHandler(deps.Chat, deps.Feed, deps.Log)
	api.GET("/ws/rooms/:room", feed.ServeWS)

	if deps.Games != nil {
		games := NewGameHandler(deps.Games, deps.Log)
		api.GET("/ws/game", games.ServeWS)
	}
	return router
}
