package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"streamgrab/internal/api"
	"streamgrab/internal/config"
	"streamgrab/internal/history"
	"streamgrab/internal/logging"
	"streamgrab/internal/queue"
	"streamgrab/internal/services"
)

const (
	maxRequestBody      = 1 << 20
	defaultHistoryLimit = 50
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService
	handler  http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:     bind,
		logger:   logger,
		daemon:   d,
		queueSvc: api.NewQueueService(d.queue),
	}
	srv.handler = srv.routes(cfg.Paths.APIToken)
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, s.handleStatus))
	mux.HandleFunc("/api/queue", authMiddleware(token, s.handleQueue))
	mux.HandleFunc("/api/queue/", authMiddleware(token, s.handleQueueItem))
	mux.HandleFunc("/api/history", authMiddleware(token, s.handleHistory))
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	// http.Server cannot be reused after Shutdown, so each start gets a new one.
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.server = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// address reports the bound listener address, or "" when the server is off.
func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).API())
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		statuses := api.ParseStatuses(r.URL.Query()["status"])
		items := s.queueSvc.List(statuses...)
		if items == nil {
			items = []api.QueueItem{}
		}
		s.writeJSON(w, http.StatusOK, api.QueueListResponse{Items: items})
	case http.MethodPost:
		var req api.EnqueueRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		item, err := s.daemon.Enqueue(r.Context(), req)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.QueueItemResponse{Item: api.FromQueueItem(item)})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/queue/"), "/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" || len(parts) > 2 {
		s.writeError(w, http.StatusNotFound, "queue item not found")
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.applyAction(id, parts[1]); err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeItem(w, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.writeItem(w, id)
	case http.MethodDelete:
		if err := s.daemon.queue.Remove(id); err != nil {
			s.writeFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) applyAction(id, action string) error {
	q := s.daemon.queue
	switch action {
	case "start":
		return q.Start(id)
	case "pause":
		return api.BoolAction(q, q.Pause)(id)
	case "resume":
		return api.BoolAction(q, q.Resume)(id)
	case "cancel":
		return api.CancelAction(q, q.Cancel)(id)
	case "up", "down":
		return q.Move(id, queue.Direction(action))
	default:
		return errUnknownAction
	}
}

var errUnknownAction = errors.New("unknown queue action")

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := defaultHistoryLimit
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	entries, err := s.daemon.ListHistory(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	dto := api.FromHistoryEntries(entries)
	if dto == nil {
		dto = []api.HistoryEntry{}
	}
	s.writeJSON(w, http.StatusOK, api.HistoryListResponse{Entries: dto})
}

func (s *apiServer) writeItem(w http.ResponseWriter, id string) {
	item, err := s.queueSvc.Describe(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "queue item not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueItemResponse{Item: *item})
}

// API converts the status to its wire representation.
func (status Status) API() api.DaemonStatus {
	return api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		DownloadDir:   status.DownloadDir,
		LockFilePath:  status.LockFilePath,
		SocketPath:    status.SocketPath,
		HistoryDBPath: status.HistoryDBPath,
		APIAddress:    status.APIAddress,
		Queue:         api.FromStats(status.Queue),
		Dispatcher:    api.FromDispatcherStatus(status.Dispatcher),
		Dependencies:  api.FromDependencies(status.Dependencies),
	}
}

// httpStatusFor maps domain errors onto response codes.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, queue.ErrNotFound), errors.Is(err, history.ErrNotFound), errors.Is(err, errUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNoSources):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNetwork), errors.Is(err, services.ErrBrowser):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	s.writeError(w, httpStatusFor(err), err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
