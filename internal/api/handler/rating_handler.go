package handler

import (
	"net/http"
	"strconv"

	"code_arena/internal/api/middleware"
	"code_arena/internal/app/service"
	"code_arena/internal/common"
	"code_arena/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type RatingHandler struct {
	ratingService *service.RatingService
}

func NewRatingHandler(rs *service.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: rs}
}

func (h *RatingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/rank", h.rank)                           // GET /api/v1/rating/rank?category=1&limit=50
	r.Get("/problems/{problemID}", h.getProblemRate) // GET /api/v1/rating/problems/42?category=1

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/refresh", h.refreshAll)
	})
}

func (h *RatingHandler) rank(w http.ResponseWriter, r *http.Request) {
	category, err := strconv.Atoi(r.URL.Query().Get("category"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid category")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	entries, err := h.ratingService.Leaderboard(r.Context(), model.Category(category), limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *RatingHandler) getProblemRate(w http.ResponseWriter, r *http.Request) {
	problemID, err := strconv.Atoi(chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid problem ID")
		return
	}
	category, err := strconv.Atoi(r.URL.Query().Get("category"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid category")
		return
	}

	rates, err := h.ratingService.GetProblemRate(r.Context(), model.Category(category), problemID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rates)
}

func (h *RatingHandler) refreshAll(w http.ResponseWriter, r *http.Request) {
	if err := h.ratingService.RefreshAll(r.Context()); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Rating tables refreshed"})
}
