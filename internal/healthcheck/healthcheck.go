package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NormalizeListen turns a configured listen value into a net.Listen address.
// A bare port ("8080") becomes ":8080"; an empty value stays empty, meaning
// the listener is disabled.
func NormalizeListen(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, ":") {
		return ":" + raw
	}
	return raw
}

// StartServer binds addr and serves /healthz and /metrics until Shutdown is
// called. The returned server's Addr holds the bound address.
func StartServer(ctx context.Context, logger *slog.Logger, addr, component string) (*http.Server, error) {
	addr = NormalizeListen(addr)
	if addr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	component = strings.TrimSpace(component)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("health listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
		default:
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		payload := map[string]any{
			"ok":   true,
			"time": time.Now().UTC().Format(time.RFC3339Nano),
		}
		if component != "" {
			payload["component"] = component
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_ = json.NewEncoder(w).Encode(payload)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("health_server_error", "component", component, "addr", srv.Addr, "error", err.Error())
		}
	}()
	logger.Info("health_server_listening", "component", component, "addr", srv.Addr)
	return srv, nil
}
