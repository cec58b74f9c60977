// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package match

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ErrLogNotFound is returned when the match log does not exist.
// It wraps fs.ErrNotExist.
var ErrLogNotFound = fmt.Errorf("match log not found: %w", fs.ErrNotExist)

// maxLineSize bounds a single PGN line. Move text for long games easily
// exceeds bufio's 64 KiB default.
const maxLineSize = 1 << 20

const (
	tagWhite  = "White"
	tagBlack  = "Black"
	tagResult = "Result"
)

// Scanner streams Records out of a match log.
//
// # Description
//
// Implements the tag state machine: White, Black and Result tag lines
// (bracketed or bare) fill their slot (a repeated tag overwrites it), a blank line ends the
// record, and end of input ends the last record. A record is emitted only
// when all three slots are set. The slots are reset after every blank
// line whether or not a record was emitted.
//
// # Example
//
//	sc := match.NewScanner(f)
//	for sc.Scan() {
//	    rec := sc.Record()
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	lines  *bufio.Scanner
	white  *string
	black  *string
	result *string
	rec    Record
	done   bool
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{lines: lines}
}

// Scan advances to the next complete record. It returns false at end of
// input or on a read error.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	for s.lines.Scan() {
		line := strings.TrimSpace(s.lines.Text())
		switch {
		case line == "":
			if s.flush() {
				return true
			}
		default:
			switch tagName(line) {
			case tagWhite:
				s.white = tagValue(line)
			case tagBlack:
				s.black = tagValue(line)
			case tagResult:
				s.result = tagValue(line)
			}
		}
	}
	s.done = true
	if s.lines.Err() != nil {
		return false
	}
	return s.flush()
}

// Record returns the record found by the last successful Scan.
func (s *Scanner) Record() Record {
	return s.rec
}

// Err returns the first read error, if any.
func (s *Scanner) Err() error {
	if err := s.lines.Err(); err != nil {
		return fmt.Errorf("read match log: %w", err)
	}
	return nil
}

// flush emits a record if all slots are set, then resets them.
func (s *Scanner) flush() bool {
	complete := s.white != nil && s.black != nil && s.result != nil
	if complete {
		s.rec = Record{
			White:   *s.white,
			Black:   *s.black,
			Result:  *s.result,
			Outcome: ParseOutcome(*s.result),
		}
	}
	s.white, s.black, s.result = nil, nil, nil
	return complete
}

// tagName returns the name of a tag line such as `[White "x"]`. The
// enclosing brackets are optional, so `White "x"` names the same tag.
func tagName(line string) string {
	name, _, ok := strings.Cut(strings.TrimPrefix(line, "["), " ")
	if !ok {
		return ""
	}
	return name
}

// tagValue returns the text between the first two double quotes, or nil
// when the line has fewer than two.
func tagValue(line string) *string {
	first := strings.IndexByte(line, '"')
	if first < 0 {
		return nil
	}
	rest := line[first+1:]
	second := strings.IndexByte(rest, '"')
	if second < 0 {
		return nil
	}
	value := rest[:second]
	return &value
}

// Parse reads every record from r.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record
	sc := NewScanner(r)
	for sc.Scan() {
		records = append(records, sc.Record())
	}
	return records, sc.Err()
}

// ParseFile reads every record from the log at path.
//
// # Outputs
//
//   - []Record: Complete records in file order.
//   - error: ErrLogNotFound if path does not exist, or a read error.
func ParseFile(path string) ([]Record, error) {
	f, err := openLog(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func openLog(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLogNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open match log: %w", err)
	}
	return f, nil
}
