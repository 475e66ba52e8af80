package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teamtempo/tempo/internal/service/auth"
	"github.com/teamtempo/tempo/internal/service/project"
	"github.com/teamtempo/tempo/internal/service/team"
	"github.com/teamtempo/tempo/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	auth         auth.Service
	team         team.Service
	project      project.Service
	hub          *ws.Hub
	upgrader     websocket.Upgrader
	limiter      RateLimiter
	dbHealth     func(context.Context) error
	fetchTimeout time.Duration

	metricsOnce sync.Once
	metrics     *routerMetrics
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitSignup    = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies. A nil limiter selects the
// in-memory one; a nil hub disables change notices.
func NewRouter(logger *slog.Logger, authSvc auth.Service, teamSvc team.Service, projectSvc project.Service, hub *ws.Hub, limiter RateLimiter, fetchTimeout time.Duration, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		auth:    authSvc,
		team:    teamSvc,
		project: projectSvc,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:      limiter,
		dbHealth:     dbHealth,
		fetchTimeout: fetchTimeout,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/auth/signup", r.audit("/auth/signup", r.withRateLimit("/auth/signup", rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleSignup)))
	r.mux.HandleFunc("/auth/login", r.audit("/auth/login", r.withRateLimit("/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/auth/logout", r.audit("/auth/logout", r.handlerAuthRate("/auth/logout", rateLimitUserWrite, rateWindowDefault, r.handleLogout)))
	r.mux.HandleFunc("/teams", r.audit("/teams", r.handlerAuthRate("/teams", rateLimitUserRead, rateWindowDefault, r.handleTeams)))
	r.mux.HandleFunc("/teams/", r.audit("/teams/{id}", r.handlerAuthRate("/teams/{id}", rateLimitUserWrite, rateWindowDefault, r.handleTeamSubroutes)))
	r.mux.HandleFunc("/projects/", r.audit("/projects/{id}", r.handlerAuthRate("/projects/{id}", rateLimitUserRead, rateWindowDefault, r.handleProjectSubroutes)))
	r.mux.HandleFunc("/ws/dashboard", r.audit("/ws/dashboard", r.handlerAuthRate("/ws/dashboard", rateLimitWebsocket, rateWindowRealtime, r.handleDashboardWS)))
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload auth.SignupInput
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, tokens, err := r.auth.Signup(req.Context(), payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, tokens, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.authInfo(w, req)
	if !ok {
		return
	}
	if err := r.auth.Logout(req.Context(), info.Token); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "logged out",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (r *Router) handleTeams(w http.ResponseWriter, req *http.Request) {
	info, ok := r.authInfo(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		teams, err := r.team.ListMine(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, teams)
	case http.MethodPost:
		var payload team.Input
		if err := decodeJSON(w, req, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, err := r.team.Create(req.Context(), info.UserID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		r.notifyTeamsChanged(info.UserID, created.ID)
		writeJSON(w, http.StatusCreated, created)
	case http.MethodDelete:
		var payload struct {
			IDs []string `json:"ids"`
		}
		if err := decodeJSON(w, req, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		deleted, err := r.team.DeleteMany(req.Context(), info.UserID, payload.IDs)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		r.notifyTeamsChanged(info.UserID, "")
		writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTeamSubroutes(w http.ResponseWriter, req *http.Request) {
	parts := pathParts(req.URL.Path, "/teams/")
	switch {
	case len(parts) == 1:
		r.handleTeam(w, req, parts[0])
	case len(parts) == 2 && parts[1] == "projects":
		r.handleTeamProjects(w, req, parts[0])
	default:
		r.notFound(w)
	}
}

func (r *Router) handleTeam(w http.ResponseWriter, req *http.Request, teamID string) {
	info, ok := r.authInfo(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodPut:
		var payload team.Input
		if err := decodeJSON(w, req, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := r.team.Update(req.Context(), info.UserID, teamID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		r.notifyTeamsChanged(info.UserID, teamID)
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := r.team.Delete(req.Context(), info.UserID, teamID); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		r.notifyTeamsChanged(info.UserID, teamID)
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTeamProjects(w http.ResponseWriter, req *http.Request, teamID string) {
	info, ok := r.authInfo(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		projects, err := r.project.ListByTeam(req.Context(), info.UserID, teamID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, projects)
	case http.MethodPost:
		var payload project.Input
		if err := decodeJSON(w, req, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, err := r.project.Create(req.Context(), info.UserID, teamID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		r.notifyTeamsChanged(info.UserID, teamID)
		writeJSON(w, http.StatusCreated, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProjectSubroutes(w http.ResponseWriter, req *http.Request) {
	parts := pathParts(req.URL.Path, "/projects/")
	switch {
	case len(parts) == 1:
		r.handleProject(w, req, parts[0])
	case len(parts) == 2 && parts[1] == "iterations":
		r.handleProjectIterations(w, req, parts[0])
	default:
		r.notFound(w)
	}
}

func (r *Router) handleProject(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := r.authInfo(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		detail, err := r.project.Detail(req.Context(), info.UserID, projectID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodPut:
		var payload project.Input
		if err := decodeJSON(w, req, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := r.project.Update(req.Context(), info.UserID, projectID, payload)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		r.notifyTeamsChanged(info.UserID, updated.TeamID)
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := r.project.Delete(req.Context(), info.UserID, projectID); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		r.notifyTeamsChanged(info.UserID, "")
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProjectIterations(w http.ResponseWriter, req *http.Request, projectID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.authInfo(w, req)
	if !ok {
		return
	}
	var payload project.IterationInput
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	iteration, err := r.project.AddIteration(req.Context(), info.UserID, projectID, payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, iteration)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// authInfo fetches the caller placed in the context by requireAuth.
func (r *Router) authInfo(w http.ResponseWriter, req *http.Request) (authInfo, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
	}
	return info, ok
}

func (r *Router) notifyTeamsChanged(userID, teamID string) {
	if r.hub == nil {
		return
	}
	r.hub.Broadcast(userID, ws.Notice{Type: ws.NoticeTeamsChanged, TeamID: teamID})
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)
		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)
		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket upgrader take over the connection. The request
// is then reported as 101.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacker not supported")
	}
	if sr.status == 0 {
		sr.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := max(limit-decision.count, 0)
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

// pathParts splits the remainder of path after prefix. Empty segments make
// the path invalid and yield nil.
func pathParts(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}
