package nbi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/internal/observability"
)

// DefaultStreamInterval is used when NewHTTPHandler is given a non-positive
// interval.
const DefaultStreamInterval = 200 * time.Millisecond

const streamWriteWait = 5 * time.Second

// HTTP routes served by NewHTTPHandler.
const (
	RoutePointing   = "/api/pointing"
	RouteDirections = "/api/directions"
	RouteClock      = "/api/clock"
	RouteStream     = "/ws/pointing"
	RouteMetrics    = "/metrics"
	RouteHealth     = "/healthz"
)

type httpAPI struct {
	svc      *OrientationService
	api      *observability.APICollector
	log      logging.Logger
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewHTTPHandler exposes the service as JSON endpoints, a websocket stream of
// pointing snapshots every interval, Prometheus metrics and a health check.
func NewHTTPHandler(svc *OrientationService, api *observability.APICollector, log logging.Logger, interval time.Duration) http.Handler {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	h := &httpAPI{
		svc:      svc,
		api:      api,
		log:      logging.OrNoop(log).With(logging.Component("http")),
		interval: interval,
		upgrader: websocket.Upgrader{
			// Sky map front ends are served from arbitrary local origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+RoutePointing, api.InstrumentHTTP(RoutePointing, http.HandlerFunc(h.pointing)))
	mux.Handle("GET "+RouteDirections, api.InstrumentHTTP(RouteDirections, http.HandlerFunc(h.directions)))
	mux.Handle("GET "+RouteClock, api.InstrumentHTTP(RouteClock, http.HandlerFunc(h.clock)))
	mux.Handle("GET "+RouteStream, api.InstrumentHTTP(RouteStream, http.HandlerFunc(h.stream)))
	mux.Handle("GET "+RouteMetrics, api.Handler())
	mux.HandleFunc("GET "+RouteHealth, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

func (h *httpAPI) pointing(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, h.svc.Report())
}

func (h *httpAPI) directions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, h.svc.Directions())
}

func (h *httpAPI) clock(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, h.svc.ClockStatus())
}

func (h *httpAPI) writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn(ctx, "failed to write response", logging.Err(err))
	}
}

// stream pushes a pointing report as soon as the client connects and then on
// every tick until the client goes away.
func (h *httpAPI) stream(w http.ResponseWriter, r *http.Request) {
	ctx, _ := logging.EnsureRequestID(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(ctx, "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	h.api.StreamOpened()
	defer h.api.StreamClosed()
	h.log.Debug(ctx, "pointing stream opened", logging.String("remote", r.RemoteAddr))

	// Reading is needed to notice close frames; clients are not expected to
	// send anything.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug(ctx, "pointing stream read failed", logging.Err(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(h.svc.Report()); err != nil {
			h.log.Debug(ctx, "pointing stream write failed", logging.Err(err))
			return
		}

		select {
		case <-gone:
			h.log.Debug(ctx, "pointing stream closed by client")
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
