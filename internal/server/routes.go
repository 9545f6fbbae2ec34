package server

import (
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"
)

const (
	claimLimit  = 20
	claimWindow = time.Hour
	loginLimit  = 10
	loginWindow = time.Minute
)

func addRoutes(r chi.Router, logger *slog.Logger, db *sql.DB, store Store, rdb *redis.Client, spaDir string) {
	broker := NewBroker()
	pipeline := newClaimPipeline(store, newAttemptLimiter(rdb, logger, "claim", claimLimit, claimWindow))
	loginLimiter := newAttemptLimiter(rdb, logger, "login", loginLimit, loginWindow)

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("CacheQuest API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	r.Post("/api/auth/login", handleLogin(store, loginLimiter))
	r.Post("/api/auth/logout", handleLogout(store))

	// EventSource cannot set headers, so the stream authenticates via
	// query parameter outside the auth middleware.
	r.Get("/api/events", handleEvents(store, broker))

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(store))

		r.Get("/api/auth/me", handleMe(store))

		r.Get("/api/spots", handleListSpots(store))
		r.Get("/api/spots/updates", handleUpdates(store))
		r.Post("/api/spots/claim", handleClaim(pipeline, broker))
		r.Get("/api/spots/{id}/clue", handleClue(store))
		r.Get("/api/spots/{id}/finds", handleSpotFinds(store))
		r.Get("/api/users/me/finds", handleMyFinds(store))

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Post("/api/spots", handleCreateSpot(store))
			r.Get("/api/spots/{id}", handleGetSpot(store))
			r.Patch("/api/spots/{id}", handleUpdateSpot(store))
			r.Delete("/api/spots/{id}", handleDeleteSpot(store))
			r.Get("/api/admin/spots", handleAdminListSpots(store))
			r.Get("/api/admin/spots/{id}/qr", handleSpotQR(store))

			r.Get("/api/admin/users", handleListUsers(store))
			r.Post("/api/admin/users", handleCreateUser(store))
			r.Get("/api/admin/users/{id}", handleGetUser(store))
			r.Patch("/api/admin/users/{id}", handleUpdateUser(store))
			r.Delete("/api/admin/users/{id}", handleDeleteUser(store))
		})
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
