package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"servertycoon/internal/auth"
	"servertycoon/internal/engine"
)

type API struct {
	Engine  *engine.Engine
	Auth    *auth.Manager
	Log     *logrus.Logger
	Origins []string
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(a.loggingMiddleware)
	r.Use(a.corsMiddleware)

	r.Get("/health", a.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.authMiddleware)
		r.Get("/me", a.handleMe)
		r.Post("/income/collect", a.handleCollectIncome)
		r.Get("/activity", a.handleActivity)
		r.Get("/fleet", a.handleFleet)

		r.Route("/servers", func(r chi.Router) {
			r.Get("/", a.handleListServers)
			r.Post("/", a.handlePurchaseServer)
			r.Post("/{id}/toggle", a.handleToggleServer)
			r.Put("/{id}/load", a.handleSetServerLoad)
			r.Post("/{id}/repair", a.handleRepairServer)
			r.Delete("/{id}", a.handleDeleteServer)
		})
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", a.handleListJobs)
			r.Post("/{id}/start", a.handleStartJob)
		})
		r.Route("/quests", func(r chi.Router) {
			r.Get("/", a.handleListQuests)
			r.Post("/{id}/claim", a.handleClaimQuest)
		})
		r.Get("/achievements", a.handleAchievements)
		r.Route("/courses", func(r chi.Router) {
			r.Get("/", a.handleListCourses)
			r.Post("/{id}/start", a.handleStartCourse)
			r.Post("/finish", a.handleFinishCourse)
		})
	})

	return r
}
