package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kmmndr/motion_watch/internal/metrics"
	"github.com/kmmndr/motion_watch/internal/motion"
)

func ended(start int) motion.Activation {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := motion.NewActivation(motion.SeverityMotion, start, now)
	a.EndFrame = start + 91
	a.EndReason = motion.EndQuiet
	a.EndedAt = now.Add(3 * time.Second)
	return *a
}

func get(t *testing.T, h http.Handler, target string, v any) int {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if v != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("GET %s: %v", target, err)
		}
	}
	return rec.Code
}

func TestStatusFollowsTheLoop(t *testing.T) {
	tracker := NewTracker("garage", 30)
	router := NewRouter(tracker, nil, metrics.NewMetrics())

	tracker.FramesSkipped(4)
	tracker.FrameAnalyzed(motion.Step{FrameIndex: 5, Severity: motion.SeverityNone, Mode: motion.Idle})

	a := motion.NewActivation(motion.SeverityHugeMotion, 10, time.Now())
	tracker.ActivationStarted(*a)
	tracker.FrameAnalyzed(motion.Step{
		FrameIndex: 10,
		Severity:   motion.SeverityHugeMotion,
		Mode:       motion.Active,
		Reading:    motion.Reading{ROIRatio: 0.05},
	})

	var status map[string]any
	if code := get(t, router, "/status", &status); code != http.StatusOK {
		t.Fatalf("status code %d", code)
	}
	if status["mode"] != "active" || status["severity"] != "huge_motion" || status["frame_index"] != float64(10) {
		t.Errorf("unexpected status %v", status)
	}
	if status["frames_analyzed"] != float64(2) || status["frames_skipped"] != float64(4) {
		t.Errorf("unexpected counters %v", status)
	}
	activation, ok := status["activation"].(map[string]any)
	if !ok || activation["uuid"] != a.UUID() || activation["event"] != "started" {
		t.Errorf("unexpected activation %v", status["activation"])
	}

	tracker.ActivationEnded(ended(10))
	status = nil
	get(t, router, "/status", &status)
	if status["mode"] != "idle" || status["activation"] != nil {
		t.Errorf("activation still reported after end: %v", status)
	}
}

func TestActivationsRing(t *testing.T) {
	tracker := NewTracker("garage", 30)
	router := NewRouter(tracker, nil, metrics.NewMetrics())

	for i := 0; i < DefaultRecentActivations+5; i++ {
		tracker.ActivationEnded(ended(i * 100))
	}

	var all []motion.Report
	if code := get(t, router, "/activations", &all); code != http.StatusOK {
		t.Fatalf("status code %d", code)
	}
	if len(all) != DefaultRecentActivations {
		t.Fatalf("got %d activations", len(all))
	}
	if all[0].StartFrame != (DefaultRecentActivations+4)*100 || all[0].Event != motion.ReportEnded {
		t.Errorf("newest first expected, got %+v", all[0])
	}

	var two []motion.Report
	get(t, router, "/activations?limit=2", &two)
	if len(two) != 2 {
		t.Errorf("limit ignored: %d", len(two))
	}

	if code := get(t, router, "/activations?limit=x", nil); code != http.StatusBadRequest {
		t.Errorf("invalid limit code %d", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(NewTracker("cam0", 0), nil, metrics.NewMetrics())

	var health map[string]string
	if code := get(t, router, "/healthz", &health); code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("healthz %d %v", code, health)
	}
	if code := get(t, router, "/metrics", nil); code != http.StatusOK {
		t.Errorf("metrics code %d", code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /status code %d", rec.Code)
	}
}

func TestServerRecoversFromPanics(t *testing.T) {
	router := NewRouter(NewTracker("cam0", 30), nil, metrics.NewMetrics())
	router.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	srv := NewServer("127.0.0.1:0", router, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panic code %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("healthz code %d encoding %q", rec.Code, rec.Header().Get("Content-Encoding"))
	}
}
