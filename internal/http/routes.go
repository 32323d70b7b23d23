package http

import (
	"time"

	"noizlabs/internal/http/handlers"
	"noizlabs/internal/http/middleware"
	"noizlabs/internal/ratelimit"
	"noizlabs/internal/service"
	"noizlabs/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

// Routes is everything the router needs. Redis may be nil, which turns the
// per-IP auth limiter off.
type Routes struct {
	Handler  *handlers.Handler
	Health   *handlers.HealthHandler
	Sessions *service.Sessions
	Hub      *ws.Hub

	Redis          redis.UniversalClient
	AuthRateLimit  int
	AuthRateWindow time.Duration
	ContentLimiter ratelimit.Limiter

	JobSecret      string
	AllowedOrigins []string
}

func RegisterRoutes(r *gin.Engine, rt Routes) {
	h := rt.Handler

	r.Use(middleware.RequestID(), middleware.CORS(rt.AllowedOrigins))

	// Health checks (no rate limiting)
	r.GET("/health", rt.Health.Health)
	r.GET("/healthz", rt.Health.Liveness)
	r.GET("/readyz", rt.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Live points feed
	r.GET("/ws", ws.HandleWS(rt.Hub, rt.Sessions, h.Profiles.WalletOf, rt.AllowedOrigins))

	api := r.Group("/api/v1")
	auth := middleware.JWT(rt.Sessions)

	// Auth
	authRL := middleware.RedisRateLimit(rt.Redis, rt.AuthRateLimit, rt.AuthRateWindow)
	api.POST("/auth/wallet", authRL, h.AuthWallet)
	api.POST("/auth/session", authRL, h.AuthSession)

	// Points (the award limiter runs inside the guard)
	api.POST("/award-points", auth, h.AwardPoints)
	api.POST("/daily-checkin", auth, h.DailyCheckin)

	// Profile
	api.GET("/me", auth, h.Me)
	api.PATCH("/profile", auth, h.UpdateProfile)
	api.GET("/leaderboard", h.GetLeaderboard)

	// Content writes are limited per wallet
	contentRL := middleware.UserRateLimit(rt.ContentLimiter, "content")
	api.GET("/categories", h.ListCategories)
	api.POST("/categories", auth, contentRL, h.CreateCategory)
	api.GET("/categories/:id/clips", h.ListClips)
	api.POST("/categories/:id/clips", auth, contentRL, h.UploadClip)
	api.POST("/votes", auth, contentRL, h.CastVote)

	// Tasks
	api.GET("/tasks", auth, h.ListTasks)
	api.POST("/tasks/:id/complete", auth, h.CompleteTask)

	// Referral system
	referral := api.Group("/referral")
	referral.Use(auth)
	{
		referral.GET("/code", h.GetReferralCode)
		referral.POST("/apply", h.ApplyReferralCode)
	}

	// Batch jobs for external schedulers
	jobs := api.Group("/jobs")
	jobs.Use(middleware.JobSecret(rt.JobSecret))
	{
		jobs.POST("/process-category-expiry", h.ProcessCategoryExpiry)
		jobs.POST("/reset-daily-quests", h.ResetDailyQuests)
	}
}
