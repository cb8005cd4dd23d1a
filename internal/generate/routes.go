package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ziadkadry99/flowminds/internal/quota"
	"github.com/ziadkadry99/flowminds/internal/render"
	"github.com/ziadkadry99/flowminds/internal/sanitize"
)

// Generator produces Mermaid source for a prompt. *Service implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Handler serves the generation, quota and render endpoints.
type Handler struct {
	Generator Generator
	Limiter   *quota.Limiter
	Engine    render.Engine
	Sanitizer *sanitize.Sanitizer
	Log       *log.Logger
	// RenderTimeout bounds one stateless render. Zero means no bound.
	RenderTimeout time.Duration
}

// RegisterRoutes mounts the API on the given router.
func RegisterRoutes(r chi.Router, h *Handler) {
	if h.Log == nil {
		h.Log = log.Default()
	}
	if h.Sanitizer == nil {
		h.Sanitizer = sanitize.Default()
	}
	r.Post("/v1/flowminds/generate", h.generate)
	r.Get("/v1/flowminds/quota", h.quota)
	r.Post("/v1/flowminds/render", h.render)
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Mermaid string `json:"mermaid"`
	} `json:"data"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Source string `json:"source,omitempty"`
}

type quotaResponse struct {
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	ResetAt   string `json:"resetAt"`
}

type renderRequest struct {
	Source string `json:"source"`
}

type renderResponse struct {
	Success bool `json:"success"`
	Data    struct {
		SVG       string `json:"svg"`
		Sanitized string `json:"sanitized"`
	} `json:"data"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Rejected prompts must not cost quota.
	if _, err := CheckPrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	client := clientKey(r)
	if h.Limiter != nil {
		if _, err := h.Limiter.Consume(r.Context(), client); err != nil {
			if errors.Is(err, quota.ErrExceeded) {
				writeError(w, http.StatusTooManyRequests, "Daily limit exceeded. Please try again tomorrow.")
				return
			}
			h.Log.Error("quota check failed", "client", client, "err", err)
			writeError(w, http.StatusInternalServerError, "quota unavailable")
			return
		}
	}

	mermaid, err := h.Generator.Generate(r.Context(), req.Prompt)
	switch {
	case errors.Is(err, ErrEmptyPrompt), errors.Is(err, ErrPromptTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.Log.Warn("generation failed", "client", client, "err", err)
		writeError(w, http.StatusBadGateway, "diagram generation failed: "+err.Error())
		return
	}

	var resp generateResponse
	resp.Success = true
	resp.Data.Mermaid = mermaid
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) quota(w http.ResponseWriter, r *http.Request) {
	if h.Limiter == nil {
		writeError(w, http.StatusNotFound, "quota is not enabled")
		return
	}
	st, err := h.Limiter.Status(r.Context(), clientKey(r))
	if err != nil {
		h.Log.Error("quota lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "quota unavailable")
		return
	}
	writeJSON(w, http.StatusOK, quotaResponse{
		Remaining: st.Remaining,
		Limit:     st.Limit,
		ResetAt:   st.ResetAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}

	ctx := r.Context()
	if h.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.RenderTimeout)
		defer cancel()
	}

	sanitized := h.Sanitizer.Sanitize(req.Source)
	switch res := render.Once(ctx, h.Engine, "mermaid-"+uuid.NewString(), sanitized).(type) {
	case render.Rendered:
		var resp renderResponse
		resp.Success = true
		resp.Data.SVG = res.Markup
		resp.Data.Sanitized = sanitized
		writeJSON(w, http.StatusOK, resp)
	case render.Failed:
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: res.Message, Source: res.OffendingSource})
	}
}

// clientKey identifies the caller for quota purposes. RealIP middleware
// has already folded proxy headers into RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
