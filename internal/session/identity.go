// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "strings"

// Identity is the signed-in user as reported by the identity provider.
// The zero value means signed out.
type Identity struct {
	UserID string
	Email  string
}

// SignedIn reports whether the identity carries a user id.
func (i Identity) SignedIn() bool {
	return strings.TrimSpace(i.UserID) != ""
}

// Display returns the best human-readable label for the user.
func (i Identity) Display() string {
	if i.Email != "" {
		return i.Email
	}
	return i.UserID
}
