package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/virtue-stages/internal/shared"
	"github.com/ashureev/virtue-stages/internal/stage"
)

// PromptGenerator produces a dismantling prompt for a request.
type PromptGenerator interface {
	Generate(ctx context.Context, req stage.Request) (*stage.Result, error)
}

// StageHandler handles prompt generation endpoints.
type StageHandler struct {
	*Handler
	svc          PromptGenerator
	maxBodyBytes int64
}

// NewStageHandler creates a new stage handler.
func NewStageHandler(base *Handler, svc PromptGenerator, maxBodyBytes int64) *StageHandler {
	return &StageHandler{Handler: base, svc: svc, maxBodyBytes: maxBodyBytes}
}

// RegisterRoutes registers stage routes. /getstage1 is kept for older clients.
func (h *StageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/stages/dismantling/prompt", h.GeneratePrompt)
	r.Post("/getstage1", h.GeneratePrompt)
}

// GeneratePrompt decodes a stage.Request and returns the generated prompt.
func (h *StageHandler) GeneratePrompt(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req stage.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	if id := middleware.GetReqID(ctx); id != "" {
		ctx = shared.WithLogAttrs(ctx, "request_id", id)
	}

	res, err := h.svc.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, stage.ErrInvalidInput) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serverError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, res)
}
