package quota

import (
	"net"
	"net/http"
	"strings"
)

// RemoteHost keys the quota by the connection's source IP.
func RemoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
