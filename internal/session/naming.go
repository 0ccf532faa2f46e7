// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/forgemind/forgemind-tui/internal/model"
)

var defaultNamePattern = regexp.MustCompile(`^Chat\s+(\d+)$`)

// IsDefaultName reports whether name has the "Chat N" form.
func IsDefaultName(name string) bool {
	return defaultNamePattern.MatchString(name)
}

// NextChatName returns "Chat N" with the smallest N >= 1 not used by any
// visible chat. Hidden chats do not reserve their number.
func NextChatName(chats []model.Chat) string {
	used := make(map[int]bool)
	for _, c := range chats {
		if !c.Visible {
			continue
		}
		m := defaultNamePattern.FindStringSubmatch(c.Name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			used[n] = true
		}
	}

	n := 1
	for used[n] {
		n++
	}
	return fmt.Sprintf("Chat %d", n)
}
