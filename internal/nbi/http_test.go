package nbi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sky-map-team/skyorient/core"
	"github.com/sky-map-team/skyorient/internal/nbi/types"
	"github.com/sky-map-team/skyorient/model"
)

func newHTTPTestServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHTTPHandler(env.svc, env.api, nil, 10*time.Millisecond))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("GET %s content type = %q", url, ct)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestHTTPJSONEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.model.SetPhoneSensorValues(core.FromModel(flatFaceDown.Acceleration), core.FromModel(flatFaceDown.MagneticField))
	srv := newHTTPTestServer(t, env)

	var report types.PointingReport
	getJSON(t, srv.URL+RoutePointing, &report)
	if want := env.svc.Report(); report != want {
		t.Fatalf("pointing = %+v, want %+v", report, want)
	}

	var dirs model.Directions
	getJSON(t, srv.URL+RouteDirections, &dirs)
	if want := env.model.Directions(); dirs != want {
		t.Fatalf("directions = %+v, want %+v", dirs, want)
	}

	var clock types.ClockStatus
	getJSON(t, srv.URL+RouteClock, &clock)
	if clock.TimeMillis != equinoxNoon.UnixMilli() || clock.TimeTravelling {
		t.Fatalf("clock = %+v", clock)
	}

	if got := testutil.ToFloat64(env.api.HTTPRequests.WithLabelValues(RoutePointing, "200")); got != 1 {
		t.Fatalf("http requests for %s = %v, want 1", RoutePointing, got)
	}
}

func TestHTTPHealthMetricsAndMethods(t *testing.T) {
	env := newTestEnv(t)
	srv := newHTTPTestServer(t, env)

	resp, err := http.Get(srv.URL + RouteHealth)
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Post(srv.URL+RoutePointing, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST pointing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST pointing status = %d, want 405", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + RouteMetrics)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, name := range []string{"skyorient_celestial_refreshes_total", "skyorient_field_of_view_degrees"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metrics output missing %s", name)
		}
	}
}

func TestPointingStream(t *testing.T) {
	env := newTestEnv(t)
	srv := newHTTPTestServer(t, env)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + RouteStream
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}

	var first, second types.PointingReport
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first report: %v", err)
	}
	if got := testutil.ToFloat64(env.api.StreamPeers); got != 1 {
		t.Fatalf("stream peers = %v, want 1", got)
	}

	// A new sample must show up in a later frame.
	env.model.SetPhoneSensorValues(core.FromModel(flatFaceDown.Acceleration), core.FromModel(flatFaceDown.MagneticField))
	want := env.svc.Report()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := conn.ReadJSON(&second); err != nil {
			t.Fatalf("read report: %v", err)
		}
		if second == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stream never reported %+v, last %+v", want, second)
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(env.api.StreamPeers) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream peers did not drop back to 0")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
