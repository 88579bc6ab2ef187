package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/overlate/overlate/internal/config"
	"github.com/overlate/overlate/internal/logger"
	"github.com/overlate/overlate/internal/output"
	"github.com/overlate/overlate/internal/overlay"
	"github.com/overlate/overlate/internal/pipeline"
	"github.com/overlate/overlate/internal/window"
)

// Server exposes the control API, the translation event stream and the
// MJPEG viewer over HTTP.
type Server struct {
	router     *mux.Router
	windowMgr  *window.Manager
	configMgr  *config.Manager
	pipeline   *pipeline.Pipeline
	overlayMgr *overlay.Manager
	mjpeg      *output.MJPEGOutput
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(
	windowMgr *window.Manager,
	configMgr *config.Manager,
	p *pipeline.Pipeline,
	overlayMgr *overlay.Manager,
	mjpeg *output.MJPEGOutput,
) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		windowMgr:  windowMgr,
		configMgr:  configMgr,
		pipeline:   p,
		overlayMgr: overlayMgr,
		mjpeg:      mjpeg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

// Router returns the configured router, for tests and embedding
func (s *Server) Router() http.Handler {
	return s.enableCORS(s.router)
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Window discovery
	api.HandleFunc("/windows", s.handleListWindows).Methods("GET")
	api.HandleFunc("/window/current", s.handleCurrentWindow).Methods("GET")

	// Translations
	api.HandleFunc("/translations", s.handleTranslations).Methods("GET")
	api.HandleFunc("/translations/stream", s.handleTranslationStream)

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")
	api.HandleFunc("/config/window", s.handleSetWindow).Methods("POST")
	api.HandleFunc("/config/zones", s.handleSetZones).Methods("POST")
	api.HandleFunc("/config/confidence", s.handleSetConfidence).Methods("POST")

	// Overlay control
	api.HandleFunc("/overlay/mode", s.handleGetOverlayMode).Methods("GET")
	api.HandleFunc("/overlay/mode", s.handleSetOverlayMode).Methods("POST")
	api.HandleFunc("/overlay/banner", s.handleSetBannerPosition).Methods("POST")

	// Health and status
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Stream endpoints
	if s.mjpeg != nil {
		s.router.HandleFunc("/stream", s.mjpeg.StreamHandler()).Methods("GET")
		s.router.HandleFunc("/snapshot", s.mjpeg.SnapshotHandler()).Methods("GET")
		s.router.HandleFunc("/", s.mjpeg.ViewerHandler()).Methods("GET")
	}
}

// Start runs the HTTP server until Shutdown is called
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.enableCORS(s.router),
	}

	logger.WithComponent("api").Info().
		Str("addr", addr).
		Msg("API server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// HTTP handlers

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.windowMgr.ListWindows()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, windows)
}

func (s *Server) handleCurrentWindow(w http.ResponseWriter, r *http.Request) {
	title := s.configMgr.Get().WindowTitle
	if title == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("no target window configured"))
		return
	}

	info, err := s.windowMgr.FindByTitle(title)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Recent())
}

// handleTranslationStream pushes translation events over a websocket
func (s *Server) handleTranslationStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := s.pipeline.Subscribe()
	defer s.pipeline.Unsubscribe(events)

	// Reader goroutine: only to detect client close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid config: %w", err))
		return
	}

	if err := s.configMgr.Update(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.overlayMgr != nil {
		s.overlayMgr.SetMode(cfg.Overlay.Mode)
	}
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing window title"))
		return
	}

	if err := s.configMgr.SetWindowTitle(req.Title); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"window_title": req.Title})
}

func (s *Server) handleSetZones(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WindowTitle string        `json:"window_title"`
		Zones       []config.Zone `json:"zones"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WindowTitle == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing window title"))
		return
	}

	for _, z := range req.Zones {
		if z.X < 0 || z.Y < 0 || z.Width <= 0 || z.Height <= 0 ||
			z.X+z.Width > 1 || z.Y+z.Height > 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("zones must be fractions within 0.0-1.0"))
			return
		}
	}

	if err := s.configMgr.SetExclusionZones(req.WindowTitle, req.Zones); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window_title": req.WindowTitle,
		"zones":        req.Zones,
	})
}

func (s *Server) handleSetConfidence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WindowTitle string  `json:"window_title"`
		Confidence  float64 `json:"confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WindowTitle == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing window title"))
		return
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("confidence must be between 0.0 and 1.0"))
		return
	}

	if err := s.configMgr.SetOCRConfidence(req.WindowTitle, req.Confidence); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window_title": req.WindowTitle,
		"confidence":   s.configMgr.OCRConfidence(req.WindowTitle),
	})
}

func (s *Server) handleGetOverlayMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(s.overlayMgr.Mode())})
}

func (s *Server) handleSetOverlayMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode config.OverlayMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid overlay mode: %s", req.Mode))
		return
	}

	if err := s.configMgr.SetOverlayMode(req.Mode); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.overlayMgr != nil {
		s.overlayMgr.SetMode(req.Mode)
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(req.Mode)})
}

func (s *Server) handleSetBannerPosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	if err := s.configMgr.SetBannerPosition(req.X, req.Y); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.overlayMgr != nil {
		s.overlayMgr.Banner().SetCustomPosition(req.X, req.Y)
	}
	writeJSON(w, http.StatusOK, map[string]int{"x": req.X, "y": req.Y})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := struct {
		pipeline.Status
		OverlayMode   config.OverlayMode `json:"overlay_mode"`
		StreamClients int                `json:"stream_clients"`
		Backend       string             `json:"window_backend"`
	}{
		Status:      s.pipeline.Status(),
		OverlayMode: s.overlayMgr.Mode(),
		Backend:     s.windowMgr.Backend().Name(),
	}
	if s.mjpeg != nil {
		status.StreamClients = s.mjpeg.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
