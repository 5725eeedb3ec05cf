// Package handler exposes the hire workflow over HTTP. It owns boundary
// validation and status mapping; all business rules live in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"hiretrack/internal/hire/models"
	"hiretrack/internal/hire/service"
	"hiretrack/internal/platform/middleware"
	"hiretrack/internal/transport/http/shared"
	dErrors "hiretrack/pkg/domain-errors"
)

// maxNoteRunes bounds a single note; longer notes belong in a document.
const maxNoteRunes = 1000

// Service defines the hire operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, actor models.Actor, params service.CreateParams) (*models.Hire, error)
	Get(ctx context.Context, code string) (*models.Hire, error)
	ListOpen(ctx context.Context) ([]*models.Hire, error)
	History(ctx context.Context, code string) ([]models.HistoryEntry, error)
	AcknowledgeLeader(ctx context.Context, code string, actor models.Actor) (*models.Hire, bool, error)
	MarkDocsSent(ctx context.Context, code string, actor models.Actor) (*models.Hire, bool, error)
	GrantAccess(ctx context.Context, code string, actor models.Actor) (*models.Hire, bool, error)
	Complete(ctx context.Context, code string, actor models.Actor) (*models.Hire, error)
	Reopen(ctx context.Context, code string, actor models.Actor) (*models.Hire, error)
	AddNote(ctx context.Context, code string, actor models.Actor, text string) (*models.Hire, error)
	UpdateCardRef(ctx context.Context, code string, actor models.Actor, chatID, messageID int64) error
}

// Handler handles hire workflow endpoints.
type Handler struct {
	logger     *slog.Logger
	hires      Service
	location   *time.Location
	adminIDs   map[int64]struct{}
	creatorIDs map[int64]struct{}
}

// New creates a hire Handler. adminIDs and creatorIDs come from configuration;
// an empty creator list means any authenticated user may create hires.
func New(hires Service, location *time.Location, adminIDs, creatorIDs []int64, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		hires:      hires,
		location:   location,
		adminIDs:   toSet(adminIDs),
		creatorIDs: toSet(creatorIDs),
	}
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Register mounts the hire routes on an already-authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/hires", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleListOpen)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/history", h.handleHistory)
			r.Post("/leader/ack", h.handleLeaderAck)
			r.Post("/legal/docs-sent", h.handleDocsSent)
			r.Post("/devops/access-granted", h.handleAccessGranted)
			r.Post("/complete", h.handleComplete)
			r.Post("/reopen", h.handleReopen)
			r.Post("/notes", h.handleAddNote)
			r.Put("/card", h.handleUpdateCard)
		})
	})
}

// actor reconstructs the acting user from the auth middleware context plus the
// configured admin and allowed-creator sets.
func (h *Handler) actor(ctx context.Context) models.Actor {
	id := middleware.GetUserID(ctx)
	_, isAdmin := h.adminIDs[id]
	canCreate := len(h.creatorIDs) == 0
	if !canCreate {
		_, canCreate = h.creatorIDs[id]
	}
	return models.Actor{
		ID:        id,
		Handle:    middleware.GetHandle(ctx),
		IsAdmin:   isAdmin,
		CanCreate: canCreate || isAdmin,
	}
}

type createRequest struct {
	FullName     string   `json:"full_name"`
	Role         string   `json:"role"`
	StartDate    string   `json:"start_date"`
	LeaderHandle string   `json:"leader_handle"`
	LegalHandle  string   `json:"legal_handle"`
	DevopsHandle string   `json:"devops_handle"`
	DocsEmail    string   `json:"docs_email"`
	Checklist    []string `json:"checklist"`
	Notes        string   `json:"notes"`
	ChatID       int64    `json:"chat_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, h.location)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "start_date must be YYYY-MM-DD"))
		return
	}

	hire, err := h.hires.Create(ctx, h.actor(ctx), service.CreateParams{
		FullName:     req.FullName,
		Role:         req.Role,
		StartDate:    startDate,
		LeaderHandle: req.LeaderHandle,
		LegalHandle:  req.LegalHandle,
		DevopsHandle: req.DevopsHandle,
		DocsEmail:    req.DocsEmail,
		Checklist:    req.Checklist,
		Notes:        req.Notes,
		ChatID:       req.ChatID,
	})
	if err != nil {
		h.logFailure(ctx, "create hire", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toHireResponse(hire))
}

func (h *Handler) handleListOpen(w http.ResponseWriter, r *http.Request) {
	hires, err := h.hires.ListOpen(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "list open hires", err)
		shared.WriteError(w, err)
		return
	}
	out := make([]hireResponse, 0, len(hires))
	for _, hire := range hires {
		out = append(out, toHireResponse(hire))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"hires": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	hire, err := h.hires.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toHireResponse(hire))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.hires.History(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]historyResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toHistoryResponse(entry))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (h *Handler) handleLeaderAck(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.hires.AcknowledgeLeader)
}

func (h *Handler) handleDocsSent(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.hires.MarkDocsSent)
}

func (h *Handler) handleAccessGranted(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.hires.GrantAccess)
}

// advance runs one sub-status transition. The benign already-done case is a
// 200 with changed=false, not an error.
func (h *Handler) advance(w http.ResponseWriter, r *http.Request, op func(context.Context, string, models.Actor) (*models.Hire, bool, error)) {
	ctx := r.Context()
	hire, changed, err := op(ctx, chi.URLParam(r, "code"), h.actor(ctx))
	if err != nil {
		h.logFailure(ctx, "advance sub-status", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, changedResponse{Changed: changed, Hire: toHireResponse(hire)})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hire, err := h.hires.Complete(ctx, chi.URLParam(r, "code"), h.actor(ctx))
	if err != nil {
		h.logFailure(ctx, "complete hire", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toHireResponse(hire))
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hire, err := h.hires.Reopen(ctx, chi.URLParam(r, "code"), h.actor(ctx))
	if err != nil {
		h.logFailure(ctx, "reopen hire", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toHireResponse(hire))
}

type noteRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleAddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Text == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "note text is required"))
		return
	}
	if utf8.RuneCountInString(req.Text) > maxNoteRunes {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "note text exceeds 1000 characters"))
		return
	}

	hire, err := h.hires.AddNote(ctx, chi.URLParam(r, "code"), h.actor(ctx), req.Text)
	if err != nil {
		h.logFailure(ctx, "add note", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toHireResponse(hire))
}

type cardRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

func (h *Handler) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req cardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.hires.UpdateCardRef(ctx, chi.URLParam(r, "code"), h.actor(ctx), req.ChatID, req.MessageID); err != nil {
		h.logFailure(ctx, "update card ref", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return
	}
	h.logger.ErrorContext(ctx, "hire operation failed",
		"op", op,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
