package http

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"edu-arena/internal/app"
	"edu-arena/internal/chatsync"
	"edu-arena/internal/domain"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds a single media upload.
const maxUploadBytes = 10 << 20

// ChatHandler serves the chat REST API.
type ChatHandler struct {
	service *app.ChatService
}

func NewChatHandler(service *app.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

type postMessageRequest struct {
	Kind     domain.MessageKind `json:"kind"`
	Content  string             `json:"content" binding:"required"`
	MediaURL string             `json:"mediaUrl"`
}

type likesRequest struct {
	Likes *int `json:"likes" binding:"required"`
}

type profileRequest struct {
	Name   string `json:"name" binding:"required"`
	Avatar string `json:"avatar"`
	Role   string `json:"role"`
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.service.Rooms()})
}

// ListMessages returns the newest page of a room, newest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	limit := chatsync.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	msgs, err := h.service.Recent(c.Request.Context(), c.Param("room"), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *ChatHandler) GetMessage(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	msg, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Kind == "" {
		req.Kind = domain.KindText
	}
	msg, err := h.service.Insert(c.Request.Context(), domain.NewMessage{
		Room:     c.Param("room"),
		AuthorID: c.GetString(userIDKey),
		Kind:     req.Kind,
		Content:  req.Content,
		MediaURL: req.MediaURL,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UpdateLikes overwrites the absolute like count.
func (h *ChatHandler) UpdateLikes(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	var req likesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.UpdateLikes(c.Request.Context(), id, *req.Likes); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, c.GetString(userIDKey)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadMedia stores a multipart "file" under the optional "name" form field.
func (h *ChatHandler) UploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = fmt.Sprintf("img_%d_%s%s", time.Now().UnixMilli(), c.GetString(userIDKey), strings.ToLower(filepath.Ext(header.Filename)))
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	if err := h.service.Upload(c.Request.Context(), name, file); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": name, "url": h.service.PublicURL(name)})
}

func (h *ChatHandler) GetProfile(c *gin.Context) {
	author, err := h.service.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, author)
}

// PutProfile lets a user maintain their own author snapshot.
func (h *ChatHandler) PutProfile(c *gin.Context) {
	id := c.Param("id")
	if id != c.GetString(userIDKey) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another profile"})
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	author := domain.Author{ID: id, Name: req.Name, Avatar: req.Avatar, Role: req.Role}
	if err := h.service.UpsertProfile(c.Request.Context(), author); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, author)
}

func messageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return id, true
}
