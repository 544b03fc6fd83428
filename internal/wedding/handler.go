package wedding

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "vowly/pkg/domain-errors"
	"vowly/pkg/platform/httputil"
	"vowly/pkg/requestcontext"
)

// Flows is the part of Service the HTTP layer drives.
type Flows interface {
	Publish(ctx context.Context, weddingID uint) (*Wedding, error)
	RecordRSVP(ctx context.Context, guestID uint, answer, message string) (*Guest, error)
}

// Handler exposes the milestone flows over HTTP.
type Handler struct {
	flows  Flows
	logger *slog.Logger
}

func NewHandler(flows Flows, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{flows: flows, logger: logger}
}

// RegisterOwner mounts routes that need an authenticated actor.
func (h *Handler) RegisterOwner(r chi.Router) {
	r.Post("/weddings/{id}/publish", h.handlePublish)
}

// RegisterGuest mounts routes invited guests reach without an account.
func (h *Handler) RegisterGuest(r chi.Router) {
	r.Post("/guests/{id}/rsvp", h.handleRSVP)
}

type weddingResponse struct {
	ID          uint       `json:"id"`
	Slug        string     `json:"slug"`
	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type guestResponse struct {
	ID        uint   `json:"id"`
	WeddingID uint   `json:"wedding_id"`
	RSVP      string `json:"rsvp"`
}

type rsvpRequest struct {
	RSVP    string `json:"rsvp"`
	Message string `json:"message"`
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	wedding, err := h.flows.Publish(ctx, id)
	if err != nil {
		h.fail(ctx, w, "publish wedding failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, weddingResponse{
		ID:          wedding.ID,
		Slug:        wedding.Slug,
		IsPublished: wedding.IsPublished,
		PublishedAt: wedding.PublishedAt,
	})
}

func (h *Handler) handleRSVP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req rsvpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	guest, err := h.flows.RecordRSVP(ctx, id, req.RSVP, req.Message)
	if err != nil {
		h.fail(ctx, w, "record rsvp failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, guestResponse{ID: guest.ID, WeddingID: guest.WeddingID, RSVP: guest.RSVP})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func pathID(r *http.Request) (uint, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "id must be a positive integer")
	}
	return uint(n), nil
}
