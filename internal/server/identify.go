// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/interview-coach/internal/config"
)

// SessionHeader carries the client's session ID for the session strategy.
const SessionHeader = "X-Session-Id"

// maxSessionIDLength bounds session IDs accepted as limiter keys.
const maxSessionIDLength = 128

// IdentifierFunc picks the rate-limit identifier for a request.
type IdentifierFunc func(r *http.Request) string

// NewIdentifier returns the IdentifierFunc for strategy. An empty strategy
// means ip.
func NewIdentifier(strategy string, resolver *ClientIPResolver) (IdentifierFunc, error) {
	switch strings.ToLower(strategy) {
	case config.IdentifierIP, "":
		return resolver.ClientIP, nil
	case config.IdentifierSession:
		return func(r *http.Request) string {
			id := strings.TrimSpace(r.Header.Get(SessionHeader))
			if id == "" || len(id) > maxSessionIDLength {
				return resolver.ClientIP(r)
			}
			return "session:" + id
		}, nil
	case config.IdentifierRandom:
		// Every request gets a fresh identifier, so no client is ever limited.
		return func(*http.Request) string {
			return uuid.NewString()
		}, nil
	default:
		return nil, fmt.Errorf("unknown rate limit identifier strategy %q", strategy)
	}
}

// ============================================================================
// CLIENT IP
// ============================================================================

// ClientIPResolver extracts client IPs, trusting X-Forwarded-For and
// X-Real-IP only on connections from a trusted proxy.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses the trusted proxy CIDRs. Bare IPs are accepted
// as single-host ranges.
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	res := &ClientIPResolver{trusted: make([]*net.IPNet, 0, len(trustedProxies))}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 128
			if ip.To4() != nil {
				bits = 32
			}
			entry = fmt.Sprintf("%s/%d", entry, bits)
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		res.trusted = append(res.trusted, ipNet)
	}
	return res, nil
}

func (c *ClientIPResolver) isTrusted(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, cidr := range c.trusted {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address for r.
//
// Process:
//  1. Take the connection IP from RemoteAddr
//  2. If it is a trusted proxy, use the first valid X-Forwarded-For entry,
//     then a valid X-Real-IP
//  3. Otherwise use the connection IP
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	connIP := remoteIP(r.RemoteAddr)
	if !c.isTrusted(connIP) {
		return connIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if clientIP := strings.TrimSpace(first); net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}

	return connIP
}

// remoteIP strips the port from an "IP:port" or "[IPv6]:port" address.
func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
