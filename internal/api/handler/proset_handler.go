package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"code_arena/internal/api/middleware"
	"code_arena/internal/app/service"
	"code_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProSetHandler struct {
	prosetService *service.ProSetService
}

func NewProSetHandler(ps *service.ProSetService) *ProSetHandler {
	return &ProSetHandler{prosetService: ps}
}

func (h *ProSetHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProSets)
	r.Get("/{prosetID}", h.getProSet)
	r.Get("/{prosetID}/items", h.listItems)

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/", h.createProSet)
		adminRouter.Patch("/{prosetID}", h.updateProSet)
		adminRouter.Delete("/{prosetID}", h.deleteProSet)
		adminRouter.Post("/{prosetID}/items", h.addItem)
		adminRouter.Patch("/items/{itemID}", h.updateItem)
		adminRouter.Delete("/items/{itemID}", h.removeItem)
	})
}

func urlParamInt(r *http.Request, key string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, key))
}

func (h *ProSetHandler) createProSet(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	proset, err := h.prosetService.CreateProSet(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, proset)
}

func (h *ProSetHandler) listProSets(w http.ResponseWriter, r *http.Request) {
	prosets, err := h.prosetService.ListProSets(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, prosets)
}

func (h *ProSetHandler) getProSet(w http.ResponseWriter, r *http.Request) {
	prosetID, err := urlParamInt(r, "prosetID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid proset ID")
		return
	}
	proset, err := h.prosetService.GetProSet(r.Context(), prosetID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, proset)
}

func (h *ProSetHandler) updateProSet(w http.ResponseWriter, r *http.Request) {
	prosetID, err := urlParamInt(r, "prosetID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid proset ID")
		return
	}
	var req service.UpdateProSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	proset, err := h.prosetService.UpdateProSet(r.Context(), prosetID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, proset)
}

func (h *ProSetHandler) deleteProSet(w http.ResponseWriter, r *http.Request) {
	prosetID, err := urlParamInt(r, "prosetID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid proset ID")
		return
	}
	if err := h.prosetService.DeleteProSet(r.Context(), prosetID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "ProSet deleted"})
}

func (h *ProSetHandler) addItem(w http.ResponseWriter, r *http.Request) {
	prosetID, err := urlParamInt(r, "prosetID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid proset ID")
		return
	}
	var req service.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	item, err := h.prosetService.AddItem(r.Context(), prosetID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, item)
}

func (h *ProSetHandler) listItems(w http.ResponseWriter, r *http.Request) {
	prosetID, err := urlParamInt(r, "prosetID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid proset ID")
		return
	}
	items, err := h.prosetService.ListItems(r.Context(), prosetID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, items)
}

func (h *ProSetHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlParamInt(r, "itemID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}
	var req service.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	item, err := h.prosetService.UpdateItem(r.Context(), itemID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, item)
}

func (h *ProSetHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlParamInt(r, "itemID")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}
	if err := h.prosetService.RemoveItem(r.Context(), itemID); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Item removed"})
}
