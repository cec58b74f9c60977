// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archive keeps the artifacts of a finished run (PGN, runner log,
// summary, and a run.json record) in a local directory or a GCS bucket.
package archive

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
)

// RunPrefix is the relative location of a run inside an archive:
// "<kind>/<YYYYMMDD-HHMMSS>-<id prefix>".
func RunPrefix(run *history.Run) string {
	id := run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	stamp := run.StartedAt.UTC().Format("20060102-150405")
	if id == "" {
		return path.Join(string(run.Kind), stamp)
	}
	return path.Join(string(run.Kind), stamp+"-"+id)
}

func encodeRun(run *history.Run) ([]byte, error) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode run record: %w", err)
	}
	return append(data, '\n'), nil
}
