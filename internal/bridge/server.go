package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"tools.zach/dev/deskcord/internal/logger"
	"tools.zach/dev/deskcord/internal/window"
)

// maxBody bounds an invoke request body.
const maxBody = 1 << 20

// ///////////////////////////////////////////////
// Server
// ///////////////////////////////////////////////

// Server is the HTTP API the shell talks to.
type Server struct {
	app      *App
	monitor  *window.Monitor
	router   *mux.Router
	origins  []string
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewServer routes requests to app. monitor feeds the window stream and
// may be nil, in which case the stream endpoint is not registered.
// Browser requests are only accepted from the given origins.
func NewServer(app *App, monitor *window.Monitor, origins []string) *Server {
	s := &Server{
		app:     app,
		monitor: monitor,
		router:  mux.NewRouter(),
		origins: origins,
		log:     logger.Component(slog.Default(), "bridge"),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return s.originAllowed(r.Header.Get("Origin")) },
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Routes hang off the root router: a mux subrouter reports a method
	// mismatch as 404 instead of 405.
	r := s.router
	// CORSMethodMiddleware must wrap cors: cors answers preflights itself.
	r.Use(mux.CORSMethodMiddleware(r), s.cors)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/commands", s.handleCommands).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/invoke/{command}", s.handleInvoke).Methods(http.MethodPost, http.MethodOptions)
	if s.monitor != nil {
		r.HandleFunc("/api/windows/stream", s.handleWindowStream).Methods(http.MethodGet)
	}
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, invokeError{Error: r.Method + " not allowed on " + r.URL.Path})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ///////////////////////////////////////////////
// Middleware
// ///////////////////////////////////////////////

// originAllowed accepts requests without an Origin (CLI tools, curl) and
// browser requests from a configured origin.
func (s *Server) originAllowed(origin string) bool {
	return origin == "" || slices.Contains(s.origins, origin)
}

// cors rejects foreign browser origins and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !s.originAllowed(origin) {
			s.log.Warn("rejected request from foreign origin", "origin", origin, "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "origin not allowed"})
			return
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ///////////////////////////////////////////////
// Handlers
// ///////////////////////////////////////////////

type invokeResult struct {
	Result any `json:"result"`
}

type invokeError struct {
	Error string `json:"error"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["command"]

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, invokeError{Error: "reading request: " + err.Error()})
		return
	}
	if len(body) > maxBody {
		writeJSON(w, http.StatusRequestEntityTooLarge, invokeError{Error: "request body too large"})
		return
	}

	result, err := s.app.Invoke(name, body)
	var argsErr *ArgsError
	switch {
	case errors.Is(err, ErrUnknownCommand), errors.As(err, &argsErr):
		writeJSON(w, http.StatusBadRequest, invokeError{Error: err.Error()})
	case err != nil:
		s.log.Debug("command failed", "command", name, "error", err)
		writeJSON(w, http.StatusOK, invokeError{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, invokeResult{Result: result})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.app.Version(),
		"connected": s.app.supervisor.AppID() != "",
		"app_id":    s.app.supervisor.AppID(),
		"platform":  s.app.scanner.Platform().Name(),
	})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Commands())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}
