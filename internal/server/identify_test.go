// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/interview-coach/internal/config"
)

func newRequest(remoteAddr string, headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = remoteAddr
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestClientIP(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"127.0.0.1/32", "10.0.0.0/8", "::1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct", "198.51.100.7:5555", nil, "198.51.100.7"},
		{"spoofed header from untrusted", "198.51.100.7:5555", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "198.51.100.7"},
		{"forwarded via trusted proxy", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.1.2.3"}, "1.2.3.4"},
		{"invalid forwarded value", "127.0.0.1:80", map[string]string{"X-Forwarded-For": "not-an-ip"}, "127.0.0.1"},
		{"real ip fallback", "127.0.0.1:80", map[string]string{"X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
		{"ipv6 proxy", "[::1]:80", map[string]string{"X-Real-IP": "2001:db8::1"}, "2001:db8::1"},
		{"no port", "198.51.100.7", nil, "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.ClientIP(newRequest(tt.remote, tt.headers)))
		})
	}
}

func TestNewClientIPResolver_Invalid(t *testing.T) {
	_, err := NewClientIPResolver([]string{"10.0.0.0/99"})
	assert.Error(t, err)

	_, err = NewClientIPResolver([]string{"localhost"})
	assert.Error(t, err)
}

func TestNewIdentifier(t *testing.T) {
	resolver, err := NewClientIPResolver(nil)
	require.NoError(t, err)

	t.Run("ip", func(t *testing.T) {
		id, err := NewIdentifier(config.IdentifierIP, resolver)
		require.NoError(t, err)
		assert.Equal(t, "198.51.100.7", id(newRequest("198.51.100.7:1", nil)))
	})

	t.Run("empty means ip", func(t *testing.T) {
		id, err := NewIdentifier("", resolver)
		require.NoError(t, err)
		assert.Equal(t, "198.51.100.7", id(newRequest("198.51.100.7:1", nil)))
	})

	t.Run("session", func(t *testing.T) {
		id, err := NewIdentifier(config.IdentifierSession, resolver)
		require.NoError(t, err)
		assert.Equal(t, "session:abc", id(newRequest("198.51.100.7:1", map[string]string{SessionHeader: " abc "})))
		assert.Equal(t, "198.51.100.7", id(newRequest("198.51.100.7:1", nil)))
		assert.Equal(t, "198.51.100.7",
			id(newRequest("198.51.100.7:1", map[string]string{SessionHeader: strings.Repeat("x", maxSessionIDLength+1)})))
	})

	t.Run("random", func(t *testing.T) {
		id, err := NewIdentifier(config.IdentifierRandom, resolver)
		require.NoError(t, err)
		r := newRequest("198.51.100.7:1", nil)
		assert.NotEqual(t, id(r), id(r))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewIdentifier("cookie", resolver)
		assert.Error(t, err)
	})
}
