package healthcheck

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func TestNormalizeListen(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "   ", want: ""},
		{in: "8080", want: ":8080"},
		{in: ":8080", want: ":8080"},
		{in: "127.0.0.1:9100", want: "127.0.0.1:9100"},
	}
	for _, tc := range cases {
		if got := NormalizeListen(tc.in); got != tc.want {
			t.Fatalf("NormalizeListen(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStartServerServesHealthAndMetrics(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := StartServer(context.Background(), logger, "127.0.0.1:0", "slack")
	if err != nil {
		t.Fatalf("StartServer() error = %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	resp, err := http.Get("http://" + srv.Addr + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want 200", resp.StatusCode)
	}
	var payload struct {
		OK        bool   `json:"ok"`
		Component string `json:"component"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode /healthz body: %v", err)
	}
	if !payload.OK {
		t.Fatalf("/healthz ok = false, want true")
	}
	if payload.Component != "slack" {
		t.Fatalf("/healthz component = %q, want %q", payload.Component, "slack")
	}

	metricsResp, err := http.Get("http://" + srv.Addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer metricsResp.Body.Close()
	if metricsResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", metricsResp.StatusCode)
	}
}

func TestStartServerRejectsEmptyAddr(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := StartServer(context.Background(), logger, "   ", "slack"); err == nil {
		t.Fatalf("StartServer(blank) error = nil, want address error")
	}
}
