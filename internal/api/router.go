package api

import (
	"net/http"
	"time"

	"code_arena/internal/api/handler"
	"code_arena/internal/app/service"
	"code_arena/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	userService *service.UserService,
	problemService *service.ProblemService,
	prosetService *service.ProSetService,
	challengeService *service.ChallengeService,
	ratingService *service.RatingService,
	webhookService *service.WebhookService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies the token from "Authorization: Bearer T" and puts claims in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(authService)
		v1.Group(func(publicAuth chi.Router) {
			authHandler.RegisterRoutes(publicAuth)
		})

		// User routes (authenticated, some admin)
		userHandler := handler.NewUserHandler(userService)
		v1.Route("/users", userHandler.RegisterRoutes)

		// Problem routes (some public, some admin)
		problemHandler := handler.NewProblemHandler(problemService)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		// ProSet routes (some public, some admin)
		prosetHandler := handler.NewProSetHandler(prosetService)
		v1.Route("/prosets", prosetHandler.RegisterRoutes)

		// Challenge routes (authenticated)
		challengeHandler := handler.NewChallengeHandler(challengeService)
		v1.Route("/challenges", challengeHandler.RegisterRoutes)

		// Rating routes (rank and per-problem rates public, refresh admin)
		ratingHandler := handler.NewRatingHandler(ratingService)
		v1.Route("/rating", ratingHandler.RegisterRoutes)

		// Webhook routes (public, but should be secured)
		webhookHandler := handler.NewWebhookHandler(webhookService)
		v1.Route("/webhook", webhookHandler.RegisterRoutes)
	})

	return r
}
