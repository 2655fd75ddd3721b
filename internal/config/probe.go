package config

import (
	"context"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"
)

// devPorts are the ports local front-end dev servers usually listen on
// (vite dev, vite preview, create-react-app / next, generic backends).
var devPorts = []string{"5173", "4173", "3000", "8080"}

// Reachable reports whether base accepts TCP connections and answers an HTTP GET.
func Reachable(ctx context.Context, base string) bool {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}

	d := net.Dialer{Timeout: 250 * time.Millisecond}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()

	client := &http.Client{Timeout: 800 * time.Millisecond}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// DetectBaseURL returns initial when it is reachable, otherwise the first
// reachable local dev-server candidate. When nothing answers initial is returned.
func DetectBaseURL(ctx context.Context, initial string, logger *log.Logger) string {
	start := time.Now()
	if Reachable(ctx, initial) {
		return initial
	}

	tried := []string{initial}
	for _, c := range candidates(initial) {
		tried = append(tried, c)
		if Reachable(ctx, c) {
			logger.Printf("[e2e-config] Auto-detect switched BaseURL %s -> %s (%.0fms; order=%v)", initial, c, time.Since(start).Seconds()*1000, tried)
			return c
		}
	}
	logger.Printf("[e2e-config] Auto-detect kept unreachable BaseURL=%s (tried=%v in %.0fms)", initial, tried, time.Since(start).Seconds()*1000)
	return initial
}

// candidates lists alternative base URLs for initial, de-duplicated and
// without initial itself.
func candidates(initial string) []string {
	ports := []string{}
	if u, err := url.Parse(initial); err == nil && u.Port() != "" {
		ports = append(ports, u.Port())
	}
	ports = append(ports, devPorts...)

	var list []string
	for _, host := range []string{"127.0.0.1", "localhost"} {
		for _, p := range ports {
			list = append(list, "http://"+host+":"+p)
		}
	}

	seen := map[string]struct{}{initial: {}}
	uniq := []string{}
	for _, c := range list {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}
	return uniq
}
