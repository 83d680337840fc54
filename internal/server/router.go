package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"github.com/erauner12/topicsync/internal/wire"
)

// Routes builds the HTTP handler: health/info endpoints plus the
// WebSocket upgrade at /ws.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlationMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// /v1/info's payload is small and fixed-size; gzhttp is applied at the
	// router level anyway so any future info/debug endpoint with a larger
	// body (topic dumps, metrics) benefits without extra wiring. The
	// WebSocket upgrade itself is unaffected: gzhttp passes non-gzippable
	// requests (like an Upgrade) straight through.
	r.Get("/v1/info", s.handleInfo)
	r.Get("/ws", s.handleWebSocket)

	log.Info().Msg("routes registered")
	gz, err := gzhttp.NewWrapper(gzhttp.MinSize(256))
	if err != nil {
		return r
	}
	return gz(r)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"protocol_version": 1,
		"flush_interval_ms": s.cfg.FlushInterval.Milliseconds(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// handleWebSocket upgrades the connection, registers a client, and runs the
// read loop until the peer disconnects. compressionMode enables permessage
// deflate with a modest size threshold, trading a little CPU for bandwidth
// on larger update batches.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsc, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode:      websocket.CompressionContextTakeover,
		CompressionThreshold: 1024,
		OriginPatterns:       s.cfg.CORSAllowedOrigins,
	})
	if err != nil {
		log.Error().Err(err).Str("correlation_id", correlationID(r.Context())).Msg("websocket accept failed")
		return
	}

	client, err := s.clients.Register(r.Context(), &wsConn{c: wsc})
	if err != nil {
		_ = wsc.Close(websocket.StatusInternalError, "registration failed")
		return
	}
	defer s.limiter.forget(client.ID)
	defer client.Disconnect()

	for {
		_, data, err := wsc.Read(r.Context())
		if err != nil {
			return
		}
		env, err := wire.Decode(data)
		if err != nil {
			log.Warn().Err(err).Int("client_id", client.ID).Msg("malformed frame")
			continue
		}
		s.dispatch(r.Context(), client, env)
	}
}
