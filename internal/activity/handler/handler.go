package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"vowly/internal/access"
	"vowly/internal/activity"
	"vowly/internal/activity/query"
	dErrors "vowly/pkg/domain-errors"
	"vowly/pkg/platform/httputil"
	liststr "vowly/pkg/platform/strings"
	"vowly/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service,Authorizer

// Service is the activity read side.
type Service interface {
	Search(ctx context.Context, filter activity.Filter) (*query.Result, error)
	ForSubject(ctx context.Context, subject activity.SubjectRef, page query.Page) (*query.Result, error)
	ForCauser(ctx context.Context, causer activity.Actor, page query.Page) (*query.Result, error)
}

// Authorizer resolves how much of the log a principal may read.
type Authorizer interface {
	ActivityScope(p requestcontext.Principal) (access.Scope, error)
}

// Handler serves the backoffice activity API.
type Handler struct {
	service    Service
	authorizer Authorizer
	logger     *slog.Logger
}

func New(service Service, authorizer Authorizer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, authorizer: authorizer, logger: logger}
}

// Register mounts the routes. The caller installs the actor middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/activity", func(r chi.Router) {
		r.Get("/", h.handleSearch)
		r.Get("/subjects/{type}/{id}", h.handleSubject)
		r.Get("/causers/{type}/{id}", h.handleCauser)
	})
}

type agentSummary struct {
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
}

type recordResponse struct {
	activity.Record
	Agent *agentSummary `json:"agent,omitempty"`
}

type listResponse struct {
	Records []recordResponse `json:"records"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	HasMore bool             `json:"has_more"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if scope == access.ScopeOwn {
		filter.CauserType, filter.CauserID = principal.Type, principal.ID
	}

	res, err := h.service.Search(ctx, filter)
	h.respond(ctx, w, res, err)
}

func (h *Handler) handleSubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	subject := activity.SubjectRef{Type: chi.URLParam(r, "type"), ID: chi.URLParam(r, "id")}
	page, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var res *query.Result
	if scope == access.ScopeOwn {
		res, err = h.service.Search(ctx, activity.Filter{
			SubjectType: activity.Channel(subject.Type),
			SubjectID:   subject.ID,
			CauserType:  principal.Type,
			CauserID:    principal.ID,
			Order:       page.Order,
			Limit:       page.Limit,
			Offset:      page.Offset,
		})
	} else {
		res, err = h.service.ForSubject(ctx, subject, page)
	}
	h.respond(ctx, w, res, err)
}

func (h *Handler) handleCauser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	causer := activity.Actor{Type: chi.URLParam(r, "type"), ID: chi.URLParam(r, "id")}
	if scope == access.ScopeOwn && (causer.Type != principal.Type || causer.ID != principal.ID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "customers may only read their own activity"))
		return
	}
	page, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page.Unbounded = false

	res, err := h.service.ForCauser(ctx, causer, page)
	h.respond(ctx, w, res, err)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (requestcontext.Principal, access.Scope, bool) {
	ctx := r.Context()
	principal, ok := requestcontext.Actor(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return principal, access.ScopeNone, false
	}
	scope, err := h.authorizer.ActivityScope(principal)
	if err != nil {
		h.logger.ErrorContext(ctx, "activity access check failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "access check failed"))
		return principal, access.ScopeNone, false
	}
	if scope == access.ScopeNone {
		h.logger.WarnContext(ctx, "activity access denied",
			"request_id", requestcontext.RequestID(ctx),
			"actor_type", principal.Type,
			"actor_id", principal.ID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "activity log access denied"))
		return principal, access.ScopeNone, false
	}
	return principal, scope, true
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, res *query.Result, err error) {
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeBadRequest) {
			h.logger.ErrorContext(ctx, "activity query failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	out := listResponse{
		Records: make([]recordResponse, 0, len(res.Records)),
		Limit:   res.Limit,
		Offset:  res.Offset,
		HasMore: res.HasMore,
	}
	for _, rec := range res.Records {
		out.Records = append(out.Records, recordResponse{Record: rec, Agent: summarizeAgent(rec.UserAgent)})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func summarizeAgent(raw string) *agentSummary {
	if raw == "" {
		return nil
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return &agentSummary{
		Browser:        name,
		BrowserVersion: version,
		OS:             ua.OS(),
		Mobile:         ua.Mobile(),
		Bot:            ua.Bot(),
	}
}

func parseFilter(r *http.Request) (activity.Filter, error) {
	q := r.URL.Query()
	page, err := parsePage(r)
	if err != nil {
		return activity.Filter{}, err
	}
	filter := activity.Filter{
		LogChannel:  activity.Channel(q.Get("channel")),
		SubjectType: activity.Channel(q.Get("subject_type")),
		SubjectID:   q.Get("subject_id"),
		CauserType:  q.Get("causer_type"),
		CauserID:    q.Get("causer_id"),
		Order:       page.Order,
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	for _, e := range liststr.SplitList(q["event"]...) {
		filter.Events = append(filter.Events, activity.Event(e))
	}
	if filter.Since, err = parseTime(q.Get("since"), "since"); err != nil {
		return activity.Filter{}, err
	}
	if filter.Until, err = parseTime(q.Get("until"), "until"); err != nil {
		return activity.Filter{}, err
	}
	return filter, nil
}

func parsePage(r *http.Request) (query.Page, error) {
	q := r.URL.Query()
	var page query.Page
	var err error
	if page.Limit, err = parseInt(q.Get("limit"), "limit"); err != nil {
		return page, err
	}
	if page.Offset, err = parseInt(q.Get("offset"), "offset"); err != nil {
		return page, err
	}
	page.Order = activity.Order(q.Get("order"))
	page.Unbounded = q.Get("all") == "true"
	return page, nil
}

func parseInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

func parseTime(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, name+" must be an RFC3339 timestamp")
	}
	return t, nil
}
