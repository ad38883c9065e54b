package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"vmixctl/internal/api"
	"vmixctl/internal/config"
	"vmixctl/internal/controller"
	"vmixctl/internal/engine"
	"vmixctl/internal/history"
	"vmixctl/internal/logging"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   cfg.API.Bind,
		token:  strings.TrimSpace(cfg.API.Token),
		logger: logger.With(logging.String("component", "api")),
		daemon: d,
	}

	router := chi.NewRouter()
	router.Use(srv.authMiddleware)

	router.Get("/api/status", srv.handleStatus)
	router.Get("/api/view", srv.handleView)
	router.Get("/api/inputs", srv.handleInputs)
	router.Get("/api/events", srv.handleEvents)
	router.Get("/api/history", srv.handleHistory)

	router.Post("/api/connect", srv.handleConnect)
	router.Post("/api/disconnect", srv.handleDisconnect)
	router.Post("/api/notifications/test", srv.handleTestNotification)

	router.Route("/api/commands", func(r chi.Router) {
		r.Post("/preview", srv.handlePreview)
		r.Post("/quickplay", srv.handleQuickPlay)
		r.Post("/ftb", srv.handleFTB)
		r.Post("/overlays/{layer}", srv.handleSetOverlay)
		r.Delete("/overlays/{layer}", srv.handleClearOverlay)
		r.Delete("/overlays", srv.handleClearAllOverlays)
	})

	router.Route("/api/profiles", func(r chi.Router) {
		r.Get("/", srv.handleListProfiles)
		r.Post("/", srv.handleSaveProfile)
		r.Delete("/{name}", srv.handleDeleteProfile)
	})

	if d.metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			d.metrics.Handler().ServeHTTP(w, r)
		})
	}

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound address, useful when bind uses port 0.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) authMiddleware(next http.Handler) http.Handler {
	if s.token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.token {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleView(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.ViewFromEngine(s.daemon.ctl.CurrentView()))
}

func (s *apiServer) handleInputs(w http.ResponseWriter, r *http.Request) {
	view := s.daemon.ctl.CurrentView()
	inputs := []api.Input{}
	if view.Snapshot != nil {
		for _, in := range view.Snapshot.Inputs {
			inputs = append(inputs, api.InputFromState(in))
		}
	}
	s.writeJSON(w, http.StatusOK, inputs)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.daemon.store == nil {
		s.writeError(w, http.StatusNotFound, "history disabled")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	entries, err := s.daemon.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := []api.HistoryEntry{}
	for _, entry := range entries {
		out = append(out, api.HistoryFromStore(entry))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req api.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.daemon.ctl.Connect(context.WithoutCancel(r.Context()), req.Host, req.Port); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.ctl.Status())
}

func (s *apiServer) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.daemon.ctl.Disconnect()
	s.writeJSON(w, http.StatusOK, s.daemon.ctl.Status())
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.ctl.Notifier().TestNotification(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req api.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == "" {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return
	}
	s.respondCommand(w)(s.daemon.ctl.SelectPreview(req.Input))
}

func (s *apiServer) handleQuickPlay(w http.ResponseWriter, r *http.Request) {
	s.respondCommand(w)(s.daemon.ctl.QuickPlay())
}

func (s *apiServer) handleFTB(w http.ResponseWriter, r *http.Request) {
	s.respondCommand(w)(s.daemon.ctl.ToggleFTB())
}

func (s *apiServer) handleSetOverlay(w http.ResponseWriter, r *http.Request) {
	layer, ok := s.layerParam(w, r)
	if !ok {
		return
	}
	var req api.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == "" {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return
	}
	s.respondCommand(w)(s.daemon.ctl.SetOverlay(layer, req.Input))
}

func (s *apiServer) handleClearOverlay(w http.ResponseWriter, r *http.Request) {
	layer, ok := s.layerParam(w, r)
	if !ok {
		return
	}
	s.respondCommand(w)(s.daemon.ctl.ClearOverlay(layer))
}

func (s *apiServer) handleClearAllOverlays(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.ctl.ClearAllOverlays(); err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CommandResponse{Status: "dispatched"})
}

func (s *apiServer) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	if s.daemon.store == nil {
		s.writeError(w, http.StatusNotFound, "profiles disabled")
		return
	}
	profiles, err := s.daemon.store.ListProfiles(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := []api.Profile{}
	for _, p := range profiles {
		out = append(out, api.Profile{Name: p.Name, Host: p.Host, Port: p.Port})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	if s.daemon.store == nil {
		s.writeError(w, http.StatusNotFound, "profiles disabled")
		return
	}
	var req api.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Host == "" {
		s.writeError(w, http.StatusBadRequest, "name and host are required")
		return
	}
	if req.Port == 0 {
		req.Port = 8088
	}
	if err := s.daemon.store.SaveProfile(r.Context(), history.Profile{Name: req.Name, Host: req.Host, Port: req.Port}); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, req)
}

func (s *apiServer) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if s.daemon.store == nil {
		s.writeError(w, http.StatusNotFound, "profiles disabled")
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.daemon.store.DeleteProfile(r.Context(), name); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams controller change events as server-sent events.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := s.daemon.ctl.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(controllerEventDTO(ev))
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type eventDTO struct {
	Type         string              `json:"type"`
	Command      *api.PendingCommand `json:"command,omitempty"`
	Connectivity string              `json:"connectivity,omitempty"`
}

func controllerEventDTO(ev controller.Event) eventDTO {
	out := eventDTO{Type: string(ev.Type), Connectivity: ev.Connectivity}
	if ev.Command != nil {
		dto := api.PendingFromEngine(*ev.Command)
		out.Command = &dto
	}
	return out
}

func (s *apiServer) layerParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	layer, err := strconv.Atoi(chi.URLParam(r, "layer"))
	if err != nil || layer < 1 || layer > 4 {
		s.writeError(w, http.StatusBadRequest, "layer must be 1-4")
		return 0, false
	}
	return layer, true
}

func (s *apiServer) respondCommand(w http.ResponseWriter) func(engine.PendingCommand, error) {
	return func(pc engine.PendingCommand, err error) {
		if err != nil {
			s.writeCommandError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, api.CommandResponse{ID: pc.ID, Status: string(pc.Status)})
	}
}

func (s *apiServer) writeCommandError(w http.ResponseWriter, err error) {
	var stale *engine.StaleTargetError
	switch {
	case errors.As(err, &stale):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, controller.ErrNotConnected):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
