package client

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

const (
	clientIPHeader = "X-Forwarded-For"
)

// GetIPAddr gets the client's IP address, preferring the first hop of the
// forwarded-for header when the service sits behind a proxy
func GetIPAddr(r *http.Request) (string, error) {
	if forwarded := r.Header.Get(clientIPHeader); len(forwarded) > 0 {
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip, nil
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if net.ParseIP(host) == nil {
		return "", errors.New("client ip not available")
	}
	return host, nil
}

// KeyByIP keys HTTP rate limits on the client's IP address
func KeyByIP(r *http.Request) (string, error) {
	return GetIPAddr(r)
}
