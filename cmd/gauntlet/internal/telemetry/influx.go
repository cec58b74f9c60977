// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink writes run results as InfluxDB points.
//
// Measurements:
//
//	gauntlet_match  tags: kind, test, base   fields: games, wins, losses, draws, score, elo, elo_error, los, exit_code
//	gauntlet_perft  tags: test, base, position, depth   fields: base_nps, test_nps, diff_pct, regression
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink creates a sink. No connection is made until the first write.
func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx: url, org and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// Record writes the points for run.
func (s *InfluxSink) Record(ctx context.Context, run *history.Run) error {
	points := Points(run)
	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write influx points: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// Points converts run into InfluxDB points.
func Points(run *history.Run) []*write.Point {
	ts := run.FinishedAt
	var points []*write.Point

	if v := run.Verdict; v != nil {
		p := influxdb2.NewPointWithMeasurement("gauntlet_match").
			AddTag("kind", string(run.Kind)).
			AddTag("test", run.Test).
			AddTag("base", run.Base).
			AddField("games", v.Games).
			AddField("wins", v.Wins).
			AddField("losses", v.Losses).
			AddField("draws", v.Draws).
			AddField("score", v.Score).
			AddField("elo", v.Elo).
			AddField("los", v.LOS).
			AddField("exit_code", run.ExitCode).
			SetTime(ts)
		if v.EloError != nil {
			p.AddField("elo_error", *v.EloError)
		}
		points = append(points, p)
	}

	if b := run.Bench; b != nil {
		for _, row := range b.Rows {
			points = append(points, influxdb2.NewPointWithMeasurement("gauntlet_perft").
				AddTag("test", run.Test).
				AddTag("base", run.Base).
				AddTag("position", row.Position.Name).
				AddTag("depth", fmt.Sprintf("%d", row.Position.Depth)).
				AddField("base_nps", row.BaseNPS).
				AddField("test_nps", row.TestNPS).
				AddField("diff_pct", row.DiffPct).
				AddField("regression", row.Regression).
				SetTime(ts))
		}
	}
	return points
}
