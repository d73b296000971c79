// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"time"
)

// ServerConfig holds the HTTP server settings read from the environment.
type ServerConfig struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `envconfig:"PORT" default:"8080"`

	// FrontendOrigin is the browser origin allowed by CORS. Empty permits
	// any origin, which is only sensible for local runs.
	FrontendOrigin string `envconfig:"FRONTEND_ORIGIN" default:""`

	// ShutdownTimeout bounds the graceful drain of in-flight requests and
	// actor checkpoints on termination.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}
