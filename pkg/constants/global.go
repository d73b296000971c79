// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants defines global constants used throughout the unfair wheel service.
package constants

// Service constants
const (
	// ServiceName is the name of this service
	ServiceName = "unfair-wheel"
)

// HTTP header constants
const (
	// RequestIDHeader is the HTTP header name for request ID
	RequestIDHeader = "X-Request-Id"

	// AuthorizationHeader is the HTTP header name for the bearer credential
	AuthorizationHeader = "Authorization"
)

// WebSocket constants
const (
	// TokenQueryParam is the query parameter carrying the bearer credential
	// on WebSocket upgrades, where custom headers are unavailable to browsers.
	TokenQueryParam = "token"
)
