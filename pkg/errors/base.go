// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package errors provides custom error types for the unfair wheel service.
// Each type names one failure class; the HTTP layer maps the class to a
// status code, so orchestrators signal outcomes by returning the right type
// rather than choosing codes themselves.
package errors

import "fmt"

// base carries the fields shared by every error type in this package.
type base struct {
	message string
	err     error
}

// error renders the message, appending the wrapped cause when one exists.
// All error types in this package embed base, so the rendering is uniform.
func (b base) error() string {
	if b.err == nil {
		return b.message
	}
	return fmt.Sprintf("%s: %v", b.message, b.err)
}

// Unwrap exposes the underlying error to support errors.Is / errors.As.
func (b base) Unwrap() error {
	return b.err
}
