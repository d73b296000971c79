// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "strings"

// Identity is the verified-identity record produced by the identity resolver.
// The service consumes it as-is and never mutates it.
type Identity struct {
	UserID         string   `json:"userId"`
	VerifiedEmails []string `json:"verifiedEmails"`
	PrimaryEmail   string   `json:"primaryEmail"`
	DisplayName    string   `json:"displayName"`
}

// HasVerifiedEmail reports whether the identity carries the given email
// under case-folded comparison.
func (i *Identity) HasVerifiedEmail(email string) bool {
	if i == nil || email == "" {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(email))
	for _, verified := range i.VerifiedEmails {
		if strings.ToLower(strings.TrimSpace(verified)) == needle {
			return true
		}
	}
	return false
}
