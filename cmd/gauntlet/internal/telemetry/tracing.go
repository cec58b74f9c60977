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
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingConfig controls span export.
type TracingConfig struct {
	// Enabled installs a real tracer provider. When false Init is a no-op
	// and the global no-op provider stays in place.
	Enabled bool

	// ServiceName identifies this tool in spans. Default: "gauntlet".
	ServiceName string

	// ServiceVersion is attached as service.version.
	ServiceVersion string

	// Output receives pretty-printed spans. Default: stderr.
	Output io.Writer
}

// Init installs the global tracer provider.
//
// Description:
//
//	Spans are batched and written as JSON to cfg.Output. After Init,
//	otel.Tracer() anywhere in the process records into this provider.
//
// Outputs:
//
//	shutdown - Flushes pending spans. Always non-nil; must be called.
//	error - Non-nil if the exporter cannot be created.
//
// Thread Safety: Call once at startup.
func Init(ctx context.Context, cfg TracingConfig) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if ctx == nil {
		return noop, errors.New("telemetry: nil context")
	}
	if !cfg.Enabled {
		return noop, nil
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	name := cfg.ServiceName
	if name == "" {
		name = "gauntlet"
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	if err != nil {
		return noop, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", name),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
