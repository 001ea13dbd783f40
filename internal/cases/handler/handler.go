package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/httputil"
	"caseflow/pkg/requestcontext"
)

// Service is the case lifecycle surface used by the HTTP layer.
type Service interface {
	Create(ctx context.Context, scope models.Scope, actor id.UserID, req models.CreateCaseRequest) (*models.Case, error)
	FindByID(ctx context.Context, scope models.Scope, caseID id.CaseID) (*models.Case, error)
	FindByCaseNumber(ctx context.Context, scope models.Scope, number string) (*models.Case, error)
	Update(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.UpdateCaseRequest) (*models.Case, error)
	Assign(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.AssignRequest) (*models.Case, error)
	Close(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.TransitionRequest) (*models.Case, error)
	Escalate(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.TransitionRequest) (*models.Case, error)
	SubmitForReview(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.TransitionRequest) (*models.Case, error)
	Archive(ctx context.Context, scope models.Scope, caseID id.CaseID, expectedVersion *int64) (*models.Case, error)
	List(ctx context.Context, scope models.Scope, filter models.ListFilter) (*models.CasePage, error)
	Overdue(ctx context.Context, scope models.Scope, olderThan time.Duration) ([]*models.Case, error)
	Statistics(ctx context.Context, scope models.Scope) (*models.Statistics, error)
	History(ctx context.Context, scope models.Scope, caseID id.CaseID) ([]models.AuditEntry, error)
}

// Handler wires case endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the case endpoints under /api/v1/cases.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1/cases", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/statistics", h.HandleStatistics)
		r.Get("/overdue", h.HandleOverdue)
		r.Get("/number/{caseNumber}", h.HandleGetByNumber)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleArchive)
		r.Get("/{id}/history", h.HandleHistory)
		r.Post("/{id}/assign", h.HandleAssign)
		r.Post("/{id}/close", h.HandleClose)
		r.Post("/{id}/escalate", h.HandleEscalate)
		r.Post("/{id}/review", h.HandleSubmitForReview)
	})
}

// scope reads the identity placed in context by the auth middleware.
func scope(ctx context.Context) models.Scope {
	return models.Scope{
		TenantID: requestcontext.TenantID(ctx),
		CellID:   requestcontext.CellID(ctx),
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.CreateCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Create(ctx, scope(ctx), actor, *req)
	if err != nil {
		h.fail(ctx, w, "create case failed", err)
		return
	}
	h.logger.InfoContext(ctx, "case created",
		"request_id", requestID,
		"case_id", c.ID,
		"case_number", c.CaseNumber,
	)
	w.Header().Set("Location", "/api/v1/cases/"+c.ID.String())
	writeCase(w, http.StatusCreated, c)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.FindByID(ctx, scope(ctx), caseID)
	if err != nil {
		h.fail(ctx, w, "get case failed", err)
		return
	}
	writeCase(w, http.StatusOK, c)
}

func (h *Handler) HandleGetByNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.service.FindByCaseNumber(ctx, scope(ctx), chi.URLParam(r, "caseNumber"))
	if err != nil {
		h.fail(ctx, w, "get case by number failed", err)
		return
	}
	writeCase(w, http.StatusOK, c)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, expected, ok := h.mutationTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateCaseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	req.ExpectedVersion = expected

	c, err := h.service.Update(ctx, scope(ctx), caseID, *req)
	if err != nil {
		h.fail(ctx, w, "update case failed", err)
		return
	}
	writeCase(w, http.StatusOK, c)
}

func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, expected, ok := h.mutationTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AssignCaseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	c, err := h.service.Assign(ctx, scope(ctx), caseID, models.AssignRequest{
		AssigneeID:      req.ParsedAssigneeID(),
		ExpectedVersion: expected,
	})
	if err != nil {
		h.fail(ctx, w, "assign case failed", err)
		return
	}
	writeCase(w, http.StatusOK, c)
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "close case failed", h.service.Close)
}

func (h *Handler) HandleEscalate(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "escalate case failed", h.service.Escalate)
}

func (h *Handler) HandleSubmitForReview(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "submit case for review failed", h.service.SubmitForReview)
}

type transitionFunc func(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.TransitionRequest) (*models.Case, error)

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, failure string, apply transitionFunc) {
	ctx := r.Context()
	caseID, expected, ok := h.mutationTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionCaseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	c, err := apply(ctx, scope(ctx), caseID, models.TransitionRequest{
		Reason:          req.Text(),
		ExpectedVersion: expected,
	})
	if err != nil {
		h.fail(ctx, w, failure, err)
		return
	}
	writeCase(w, http.StatusOK, c)
}

func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, expected, ok := h.mutationTarget(w, r)
	if !ok {
		return
	}
	c, err := h.service.Archive(ctx, scope(ctx), caseID, expected)
	if err != nil {
		h.fail(ctx, w, "archive case failed", err)
		return
	}
	w.Header().Set("ETag", etag(c.Version))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		h.fail(ctx, w, "invalid list query", err)
		return
	}
	page, err := h.service.List(ctx, scope(ctx), filter)
	if err != nil {
		h.fail(ctx, w, "list cases failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleOverdue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	days := defaultOverdueDays
	if raw := r.URL.Query().Get("olderThanDays"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "olderThanDays must be a non-negative integer"))
			return
		}
		days = n
	}
	cases, err := h.service.Overdue(ctx, scope(ctx), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.fail(ctx, w, "list overdue cases failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &OverdueResponse{Cases: cases, OlderThanDays: days})
}

func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Statistics(ctx, scope(ctx))
	if err != nil {
		h.fail(ctx, w, "case statistics failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.History(ctx, scope(ctx), caseID)
	if err != nil {
		h.fail(ctx, w, "case history failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &HistoryResponse{CaseID: caseID, Entries: entries})
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid case id"))
		return id.CaseID{}, false
	}
	return caseID, true
}

// mutationTarget parses the case id and the optional If-Match version.
func (h *Handler) mutationTarget(w http.ResponseWriter, r *http.Request) (id.CaseID, *int64, bool) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return id.CaseID{}, nil, false
	}
	expected, err := parseIfMatch(r.Header.Get("If-Match"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CaseID{}, nil, false
	}
	return caseID, expected, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if code := dErrors.CodeOf(err); code == dErrors.CodeInternal || code == dErrors.CodeUnavailable || code == dErrors.CodeAllocationFailure {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", requestcontext.TenantID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func writeCase(w http.ResponseWriter, status int, c *models.Case) {
	w.Header().Set("ETag", etag(c.Version))
	httputil.WriteJSON(w, status, c)
}
