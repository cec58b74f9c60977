// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
)

// GCSConfig locates the bucket.
type GCSConfig struct {
	Bucket string

	// Prefix is prepended to every object name.
	Prefix string

	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string

	Logger *slog.Logger
}

// GCSArchiver uploads artifacts to a Cloud Storage bucket.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger

	// newWriter opens an object for writing.
	newWriter func(ctx context.Context, object string) io.WriteCloser
}

// NewGCSArchiver creates the storage client.
//
// # Outputs
//
//   - *GCSArchiver: Ready archiver. Call Close when done.
//   - error: Non-nil if the bucket is empty, the key file is missing, or
//     the client cannot be created.
func NewGCSArchiver(ctx context.Context, cfg GCSConfig) (*GCSArchiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive: bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("archive: service account key %s: %w", cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: create GCS client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &GCSArchiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}
	a.newWriter = a.objectWriter
	return a, nil
}

func (a *GCSArchiver) objectWriter(ctx context.Context, object string) io.WriteCloser {
	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	return w
}

// Close releases the storage client.
func (a *GCSArchiver) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

// Record uploads run's artifacts and run.json under
// <prefix>/<RunPrefix(run)>/.
func (a *GCSArchiver) Record(ctx context.Context, run *history.Run) error {
	base := path.Join(a.prefix, RunPrefix(run))

	for _, src := range run.Artifacts.Paths() {
		f, err := os.Open(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("open %s: %w", src, err)
		}
		err = a.upload(ctx, path.Join(base, filepath.Base(src)), f)
		f.Close()
		if err != nil {
			return err
		}
	}

	data, err := encodeRun(run)
	if err != nil {
		return err
	}
	return a.upload(ctx, path.Join(base, "run.json"), bytes.NewReader(data))
}

func (a *GCSArchiver) upload(ctx context.Context, object string, r io.Reader) error {
	w := a.newWriter(ctx, object)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("upload gs://%s/%s: %w", a.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish gs://%s/%s: %w", a.bucket, object, err)
	}
	a.logger.Debug("uploaded artifact", slog.String("object", "gs://"+a.bucket+"/"+object))
	return nil
}
