// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-provided identifiers before they reach a
// subprocess command line or a PGN tag.
//
// Engine names are passed to the match runner as "name=<x>" and come back
// as quoted PGN tag values, so a name containing whitespace, quotes, or '='
// would be split or misattributed. Revisions are handed to git, where a
// leading '-' would be read as an option.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// engineNamePattern matches names that survive the runner's argument
// parsing and PGN quoting unchanged.
var engineNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+\-]{0,63}$`)

// ValidateEngineName checks a match participant name.
//
// Valid names:
//   - 1-64 characters
//   - Letters, digits, dots, underscores, plus signs, and hyphens
//   - Starting with a letter or digit
//
// Example:
//
//	if err := validation.ValidateEngineName(opts.OpponentName); err != nil {
//	    return fmt.Errorf("opponent name: %w", err)
//	}
func ValidateEngineName(name string) error {
	if name == "" {
		return fmt.Errorf("engine name cannot be empty")
	}
	if !engineNamePattern.MatchString(name) {
		return fmt.Errorf("invalid engine name %q (1-64 letters, digits, '.', '_', '+' or '-', starting with a letter or digit)", name)
	}
	return nil
}

// ValidateRevision checks a git revision before it is passed to git.
//
// Anything git accepts is allowed except an empty string, a leading '-',
// whitespace, and control characters.
func ValidateRevision(ref string) error {
	if ref == "" {
		return fmt.Errorf("revision cannot be empty")
	}
	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("invalid revision %q: must not start with '-'", ref)
	}
	for _, r := range ref {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("invalid revision %q: contains whitespace or control characters", ref)
		}
	}
	return nil
}
