package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"docarchive/internal/config"
	"docarchive/internal/handler"
	"docarchive/internal/middleware"
	"docarchive/internal/model"
)

type Handlers struct {
	Collection *handler.CollectionHandler
	Config     *handler.ConfigHandler
	Events     *handler.EventsHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.WriteRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	writers := []string{model.RoleEditor, model.RoleAdmin}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(authMiddleware.RequireAuth)

		// The event stream is long-lived and must not sit behind the
		// buffering request timeout.
		api.With(middleware.StreamingTimeout(cfg.EventsMaxDuration, 3*handler.EventsHeartbeat)).
			Get("/events", h.Events.Stream)

		api.Group(func(rest chi.Router) {
			rest.Use(middleware.Timeout(cfg.RequestTimeout))

			rest.Route("/collections/{name}", func(coll chi.Router) {
				coll.Post("/find", h.Collection.Find)
				coll.With(authMiddleware.RequireRoles(writers...)).Post("/documents", h.Collection.Insert)
				coll.With(authMiddleware.RequireRoles(writers...)).Delete("/documents", h.Collection.Delete)
				coll.With(authMiddleware.RequireRoles(writers...)).Post("/archive", h.Collection.Archive)
				coll.With(authMiddleware.RequireRoles(writers...)).Post("/restore", h.Collection.Restore)
			})

			rest.Get("/archive/config", h.Config.Get)
			rest.With(authMiddleware.RequireRoles(model.RoleAdmin)).Patch("/archive/config", h.Config.Patch)
		})
	})

	return r
}
