package realtime

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/foodshare/internal/logging"
)

// RouterConfig configures the realtime listener.
type RouterConfig struct {
	AllowedOrigins []string
	// ConnectsPerMinute caps WebSocket upgrades per client IP.
	ConnectsPerMinute int
}

// NewRouter serves /ws, /metrics and /healthz.
func NewRouter(hub *Hub, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	upgrader := websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      originChecker(cfg.AllowedOrigins),
	}

	r.With(httprate.LimitByIP(cfg.ConnectsPerMinute, time.Minute)).
		Get("/ws", func(w http.ResponseWriter, req *http.Request) {
			conn, err := upgrader.Upgrade(w, req, nil)
			if err != nil {
				// Upgrade has already written the error response.
				logging.Debug().Err(err).Msg("websocket upgrade failed")
				return
			}
			c := newClient(hub, conn)
			if !hub.join(req.Context(), c) {
				_ = conn.Close()
				return
			}
			go c.writePump()
			go c.readPump()
		})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// originChecker allows requests without an Origin header (non-browser
// clients) and browsers from an allowed origin.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
		return false
	}
}
