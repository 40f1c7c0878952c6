// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"regexp"
	"strings"
)

// mentionPattern matches @name tokens and @local@domain email mentions.
// The email alternative comes first so "@bob@example.com" is one token,
// not "@bob" followed by stray text.
var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)+|[A-Za-z0-9_.-]+)`)

// ExtractMentionHandles returns the unique mention handles in body, in
// order of first appearance. Handles are compared case-insensitively;
// trailing punctuation like "@bob." resolves to "bob" because handle
// matching strips the dangling dot.
func ExtractMentionHandles(body string) []string {
	matches := mentionPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		handle := strings.TrimRight(m[1], ".")
		if handle == "" {
			continue
		}
		key := strings.ToLower(handle)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		handles = append(handles, handle)
	}
	return handles
}
