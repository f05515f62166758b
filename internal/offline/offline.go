// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNonLocalhost is returned for non-loopback endpoints in offline mode.
	ErrNonLocalhost = errors.New("offline mode: only localhost endpoints are allowed")

	// ErrInvalidURLScheme is returned when the URL scheme is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https endpoints are allowed")

	// ErrInvalidURL is returned when the URL cannot be parsed or has no host.
	ErrInvalidURL = errors.New("invalid endpoint URL")
)

// =============================================================================
// MODE MANAGEMENT
// =============================================================================

// offlineMode is process-wide: --offline and the config file both set it,
// and a config reload may flip it while a chat is running.
var offlineMode atomic.Bool

// SetOfflineMode restricts the chat client to loopback endpoints.
func SetOfflineMode(enabled bool) {
	offlineMode.Store(enabled)
}

// IsOfflineMode reports whether only loopback endpoints may be contacted.
func IsOfflineMode() bool {
	return offlineMode.Load()
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost reports whether host (optionally with port) is a loopback
// name or address.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	// Covers 127.0.0.0/8 and every IPv6 spelling of ::1.
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL checks that rawURL is an http(s) URL with a host and, in
// offline mode, that the host is loopback.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ErrInvalidURL
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURLScheme
	}

	if IsOfflineMode() && !IsLocalhost(parsed.Hostname()) {
		return ErrNonLocalhost
	}
	return nil
}

// =============================================================================
// STATUS DISPLAY
// =============================================================================

// StatusBadge describes the mode for status output, or "" when online.
func StatusBadge() string {
	if IsOfflineMode() {
		return "offline (localhost endpoints only)"
	}
	return ""
}
