package handlers

import (
	"net/http"

	"noizlabs/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.Content.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateCategory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	cat, err := h.Content.CreateCategory(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": cat})
}

func (h *Handler) ListClips(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	clips, err := h.Content.ListClips(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clips": clips})
}

// UploadClip takes a multipart form with "file" and "title".
func (h *Handler) UploadClip(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxClipSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	clip, err := h.Content.UploadClip(c.Request.Context(), userID, id, service.ClipUpload{
		Title: c.PostForm("title"),
		Body:  f,
		Size:  fh.Size,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"clip": clip})
}

type CastVoteRequest struct {
	ClipID   int64  `json:"clipId"`
	BattleID string `json:"battleId"`
}

func (h *Handler) CastVote(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ClipID <= 0 {
		badRequest(c, "clipId is required")
		return
	}

	vote, err := h.Content.CastVote(c.Request.Context(), userID, req.ClipID, req.BattleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vote": vote})
}
