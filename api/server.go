package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/game/service"
	"github.com/wricardo/mcp-training/damegame/game/session"
	"github.com/wricardo/mcp-training/damegame/pkg/logger"
	"github.com/wricardo/mcp-training/damegame/transport/websocket"
)

// RESTPrefix is where the browser client expects the game routes.
const RESTPrefix = "/rest"

// Server represents the REST API server
type Server struct {
	service   service.GameService
	hub       *websocket.Hub
	router    *mux.Router
	staticDir string
	log       *logger.Logger
}

// NewServer creates a new API server. hub may be nil, in which case /ws is
// unavailable. An empty staticDir disables static file serving.
func NewServer(gameService service.GameService, hub *websocket.Hub, staticDir string, log *logger.Logger) *Server {
	s := &Server{
		service:   gameService,
		hub:       hub,
		router:    mux.NewRouter(),
		staticDir: staticDir,
		log:       log,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Game routes are served both at the root and under /rest
	s.gameRoutes(s.router.PathPrefix(RESTPrefix).Subrouter())
	s.gameRoutes(s.router)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

func (s *Server) gameRoutes(r *mux.Router) {
	r.HandleFunc("/new/{white}/{black}", s.handleNewGame).Methods("POST")
	r.HandleFunc("/get/{id}", s.handlePoll).Methods("GET")
	r.HandleFunc("/select/{id}/{x}/{y}", s.handleSelect).Methods("GET")
	r.HandleFunc("/move/{id}/{x}/{y}/{dx}/{dy}", s.handleMove).Methods("POST")

	r.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	r.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	r.HandleFunc("/retry/{id}", s.handleRetry).Methods("POST")
	r.HandleFunc("/snapshot/{id}", s.handleSnapshot).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidPlayerKind):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidMove):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed",
			logger.F("path", r.URL.Path),
			logger.Err(err))
	}
	respondError(w, status, err.Error())
}

// intVars parses the named path variables as integers
func intVars(r *http.Request, names ...string) ([]int, error) {
	vars := mux.Vars(r)
	values := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(vars[name])
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", name, vars[name])
		}
		values[i] = v
	}
	return values, nil
}

// Game Handlers

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	view, err := s.service.NewGame(r.Context(), vars["white"], vars["black"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	view, err := s.service.Poll(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	xy, err := intVars(r, "x", "y")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Select(r.Context(), sessionID, xy[0], xy[1])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	c, err := intVars(r, "x", "y", "dx", "dy")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.service.Move(r.Context(), sessionID, c[0], c[1], c[2], c[3])
	if err != nil {
		s.log.Info("[MOVE] rejected",
			logger.F("uid", sessionID),
			logger.F("move", engine.Step{X: c[0], Y: c[1], DX: c[2], DY: c[3]}.String()),
			logger.Err(err))
		s.respondServiceError(w, r, err)
		return
	}

	s.log.Info("[MOVE]",
		logger.F("uid", sessionID),
		logger.F("move", engine.Step{X: c[0], Y: c[1], DX: c[2], DY: c[3]}.String()),
		logger.F("next", fmt.Sprint(view["next_move"])))

	respondJSON(w, http.StatusOK, view)
}

// Session Handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	info, err := s.service.SessionInfo(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	info, err := s.service.Retry(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	snap, err := s.service.Snapshot(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "push stream disabled", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.SessionInfo(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	// Upgrade to WebSocket
	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Health(r.Context()))
}
