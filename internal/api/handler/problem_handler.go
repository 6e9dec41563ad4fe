package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"code_arena/internal/api/middleware"
	"code_arena/internal/app/service"
	"code_arena/internal/common"
	"code_arena/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)          // GET /api/v1/problems
	r.Get("/{problemID}", h.getProblem) // GET /api/v1/problems/42?category=1

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Put("/{problemID}", h.upsertProblem)
		adminRouter.Delete("/{problemID}", h.deleteProblem)
	})
}

func (h *ProblemHandler) upsertProblem(w http.ResponseWriter, r *http.Request) {
	problemID, err := strconv.Atoi(chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid problem ID")
		return
	}

	var req service.UpsertProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	problem, err := h.problemService.UpsertProblem(r.Context(), problemID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	startID, _ := strconv.Atoi(r.URL.Query().Get("start_id"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	problems, err := h.problemService.ListProblems(r.Context(), startID, limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problemID, err := strconv.Atoi(chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid problem ID")
		return
	}

	categoryStr := r.URL.Query().Get("category")
	if categoryStr == "" {
		problem, err := h.problemService.GetProblem(r.Context(), problemID)
		if err != nil {
			common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
			return
		}
		common.RespondWithJSON(w, http.StatusOK, problem)
		return
	}

	category, err := strconv.Atoi(categoryStr)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid category")
		return
	}

	problem, rates, err := h.problemService.GetProblemWithRate(r.Context(), problemID, model.Category(category))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type ProblemWithRateResponse struct {
		Problem *model.Problem      `json:"problem"`
		Rates   []model.ProblemRate `json:"rates"`
	}
	common.RespondWithJSON(w, http.StatusOK, ProblemWithRateResponse{Problem: problem, Rates: rates})
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	problemID, err := strconv.Atoi(chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid problem ID")
		return
	}
	if err := h.problemService.DeleteProblem(r.Context(), problemID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Problem deleted"})
}
