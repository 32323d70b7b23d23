package handlers

import (
	"noizlabs/internal/http/middleware"
	"noizlabs/internal/ratelimit"
	"noizlabs/internal/service"
	"noizlabs/internal/storage"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Auth     *service.AuthService
	Points   *service.PointsService
	Checkins *service.CheckinService
	Expiry   *service.ExpiryService
	Content  *service.ContentService
	Profiles *service.ProfileService
	Tasks    *service.TaskService
}

// NewHandler builds every service over one set of dependencies.
func NewHandler(d service.Deps, sessions *service.Sessions, awards ratelimit.Limiter, blobs storage.BlobStore) *Handler {
	return &Handler{
		Auth:     service.NewAuthService(d, sessions),
		Points:   service.NewPointsService(d, awards),
		Checkins: service.NewCheckinService(d),
		Expiry:   service.NewExpiryService(d, blobs),
		Content:  service.NewContentService(d, blobs),
		Profiles: service.NewProfileService(d),
		Tasks:    service.NewTaskService(d),
	}
}

// getUserID reads the profile id the JWT middleware stored on c.
func getUserID(c *gin.Context) (int64, bool) {
	return middleware.UserID(c)
}
