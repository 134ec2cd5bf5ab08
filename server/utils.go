package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// writeJSON writes v as a JSON response with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// clientIP returns RemoteAddr without its port. The first X-Forwarded-For hop replaces it only
// when the peer is inside one of the trusted prefixes.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := stripPort(r.RemoteAddr)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" || !isTrustedPeer(peer, trusted) {
		return peer
	}
	first, _, _ := strings.Cut(forwarded, ",")
	if first = stripPort(strings.TrimSpace(first)); first != "" {
		return first
	}
	return peer
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func isTrustedPeer(peer string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// maskCode keeps the first 8 characters of an authorization code for logs.
func maskCode(code string) string {
	if len(code) > 8 {
		code = code[:8]
	}
	return code + "..."
}
