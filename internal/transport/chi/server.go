package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/picmap/internal/domain"
	"github.com/kailas-cloud/picmap/internal/domain/query"
	healthuc "github.com/kailas-cloud/picmap/internal/usecase/health"
	searchuc "github.com/kailas-cloud/picmap/internal/usecase/search"
	"github.com/kailas-cloud/picmap/internal/usecase/session"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// BodyRenderer renders the backend request body of a compiled query.
type BodyRenderer interface {
	Body(req query.Request) ([]byte, error)
}

// Server serves the picmap HTTP API.
type Server struct {
	search        *searchuc.Service
	sessions      *session.Manager
	health        *healthuc.Service
	renderer      BodyRenderer
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. renderer may be nil.
func NewServer(
	search *searchuc.Service,
	sessions *session.Manager,
	health *healthuc.Service,
	renderer BodyRenderer,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		sessions: sessions,
		health:   health,
		renderer: renderer,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		backendStatusHandler,
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, ErrorResponseCodeSessionNotFound),
		sentinelHandler(domain.ErrSessionClosed, http.StatusGone, ErrorResponseCodeSessionClosed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, ErrorResponseCodeInvalidFilter),
		sentinelHandler(domain.ErrTooManySessions, http.StatusTooManyRequests, ErrorResponseCodeTooManySessions),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited),
		sentinelHandler(domain.ErrCircuitOpen, http.StatusServiceUnavailable, ErrorResponseCodeSearchUnavailable),
		sentinelHandler(domain.ErrSearchBackend, http.StatusBadGateway, ErrorResponseCodeSearchBackendError),
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/facets", s.ListFacets)
		r.Get("/search", s.Search)
		r.Get("/query", s.CompileQuery)
		r.Get("/constituents", s.ListConstituents)
		r.Get("/constituents/{id}/addresses", s.ConstituentAddresses)

		r.Post("/sessions", s.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Put("/state", s.PutSessionState)
			r.Delete("/filters", s.ResetSessionFilters)
			r.Put("/filters/{facet}", s.PutSessionFilter)
			r.Delete("/filters/{facet}", s.ResetSessionFilter)
			r.Post("/constituents/more", s.MoreSessionConstituents)
		})
	})
}

// ListFacets handles GET /v1/facets.
func (s *Server) ListFacets(w http.ResponseWriter, r *http.Request) {
	panel, err := s.search.Panel(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	base, err := s.search.BaseFacets(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.search.Applier().Apply(base, panel.Widgets())
	options := panel.Snapshot()

	reg := s.search.Registry()
	resp := FacetsResponse{
		ParentType: reg.Schema().ParentType,
		ChildType:  reg.Schema().ChildType,
		Facets:     make([]FacetResponse, 0, reg.Len()),
	}
	for _, d := range reg.All() {
		resp.Facets = append(resp.Facets, FacetResponse{
			ID:           d.ID,
			Label:        d.Label,
			Key:          d.Key(),
			Kind:         d.Kind.String(),
			Side:         reg.SideOf(d).String(),
			Aggregatable: d.Aggregatable(),
			Options:      options[d.ID],
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var p StateParams
	if err := decodeQuery(&p, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	res, err := s.search.Search(r.Context(), p.State)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultToResponse(res))
}

// CompileQuery handles GET /v1/query.
func (s *Server) CompileQuery(w http.ResponseWriter, r *http.Request) {
	var p QueryParams
	if err := decodeQuery(&p, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}
	rel, ok := query.ParseRelation(p.Relation)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
			`relation must be "parent" or "child"`)
		return
	}

	st, _ := s.search.Codec().DecodeState(p.State)
	q := s.search.Compile(st, rel)
	resp := QueryResponse{
		Relation: rel.String(),
		DocType:  q.TargetType,
		Query:    queryString(q),
	}
	if s.renderer != nil {
		body, err := s.renderer.Body(query.Request{
			Query:         q,
			PageSize:      s.search.Options().PageSize,
			TargetDocType: q.TargetType,
		})
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp.Body = json.RawMessage(body)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListConstituents handles GET /v1/constituents.
func (s *Server) ListConstituents(w http.ResponseWriter, r *http.Request) {
	var p ConstituentsParams
	if err := decodeQuery(&p, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	st, _ := s.search.Codec().DecodeState(p.State)
	page, err := s.search.Constituents(r.Context(), st, p.From)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// ConstituentAddresses handles GET /v1/constituents/{id}/addresses.
func (s *Server) ConstituentAddresses(w http.ResponseWriter, r *http.Request) {
	var id int64
	if err := bindPath(r, "id", &id); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	addrs, err := s.search.Addresses(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AddressesResponse{ConstituentID: id, Addresses: addrs})
}

// CreateSession handles POST /v1/sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var p StateParams
	if err := decodeQuery(&p, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	sess, err := s.sessions.Create(r.Context(), p.State)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeSession(w, r, sess, http.StatusCreated)
}

// GetSession handles GET /v1/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.writeSession(w, r, sess, http.StatusOK)
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := bindPath(r, "id", &id); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutSessionState handles PUT /v1/sessions/{id}/state.
func (s *Server) PutSessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := sess.SetFragment(r.Context(), req.State); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeSession(w, r, sess, http.StatusOK)
}

// PutSessionFilter handles PUT /v1/sessions/{id}/filters/{facet}.
func (s *Server) PutSessionFilter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var facetID string
	if err := bindPath(r, "facet", &facetID); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := sess.SetFilter(r.Context(), facetID, req.Value); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeSession(w, r, sess, http.StatusOK)
}

// ResetSessionFilter handles DELETE /v1/sessions/{id}/filters/{facet}.
func (s *Server) ResetSessionFilter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var facetID string
	if err := bindPath(r, "facet", &facetID); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	if err := sess.ResetFilter(r.Context(), facetID); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeSession(w, r, sess, http.StatusOK)
}

// ResetSessionFilters handles DELETE /v1/sessions/{id}/filters.
func (s *Server) ResetSessionFilters(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if err := sess.ResetAll(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeSession(w, r, sess, http.StatusOK)
}

// MoreSessionConstituents handles POST /v1/sessions/{id}/constituents/more.
func (s *Server) MoreSessionConstituents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if err := sess.MoreConstituents(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeSession(w, r, sess, http.StatusOK)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	var id string
	if err := bindPath(r, "id", &id); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.handleDomainError(w, err)
		return nil, false
	}
	return sess, true
}

// writeSession responds with the session view; with ?wait=true it blocks
// until the running generation has finished.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, sess *session.Session, status int) {
	var p WaitParams
	if err := decodeQuery(&p, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	var (
		snap session.Snapshot
		err  error
	)
	if p.Wait {
		snap, err = sess.Wait(r.Context())
	} else {
		snap, err = sess.Snapshot(r.Context())
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, status, snapshotToResponse(snap))
}

func queryString(q *query.Search) string {
	if len(q.Must) == 0 {
		return query.MatchAll().String()
	}
	parts := make([]string, len(q.Must))
	for i, c := range q.Must {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

var clientSentinels = []error{
	domain.ErrSessionNotFound,
	domain.ErrSessionClosed,
	domain.ErrNotFound,
	domain.ErrInvalidFilter,
	domain.ErrTooManySessions,
	domain.ErrRateLimited,
	domain.ErrCircuitOpen,
	domain.ErrSearchBackend,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range clientSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// errorCode maps an error to its response code, for errors reported inside a body.
func errorCode(err error) ErrorResponseCode {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return ErrorResponseCodeSessionNotFound
	case errors.Is(err, domain.ErrSessionClosed):
		return ErrorResponseCodeSessionClosed
	case errors.Is(err, domain.ErrNotFound):
		return ErrorResponseCodeNotFound
	case errors.Is(err, domain.ErrInvalidFilter):
		return ErrorResponseCodeInvalidFilter
	case errors.Is(err, domain.ErrTooManySessions):
		return ErrorResponseCodeTooManySessions
	case errors.Is(err, domain.ErrRateLimited):
		return ErrorResponseCodeRateLimited
	case errors.Is(err, domain.ErrCircuitOpen):
		return ErrorResponseCodeSearchUnavailable
	case errors.Is(err, domain.ErrSearchBackend):
		return ErrorResponseCodeSearchBackendError
	default:
		return ErrorResponseCodeInternalError
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// backendStatusHandler handles BackendStatusError with the upstream status in the body.
// A backend 429 is passed through as 429.
func backendStatusHandler(w http.ResponseWriter, err error, msg string) bool {
	var bse *domain.BackendStatusError
	if !errors.As(err, &bse) {
		return false
	}
	status, code := http.StatusBadGateway, ErrorResponseCodeSearchBackendError
	if bse.Status == http.StatusTooManyRequests {
		status, code = http.StatusTooManyRequests, ErrorResponseCodeRateLimited
	}
	writeJSON(w, status, map[string]any{
		"code":           code,
		"message":        msg,
		"backend_status": bse.Status,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
