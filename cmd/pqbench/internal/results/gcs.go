// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AleutianAI/pqbench/pkg/logging"
)

// ObjectStore creates writers for objects in one bucket.
type ObjectStore interface {
	NewWriter(ctx context.Context, object string) io.WriteCloser
	Close() error
}

// bucketStore is the Cloud Storage ObjectStore.
type bucketStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func (b *bucketStore) NewWriter(ctx context.Context, object string) io.WriteCloser {
	w := b.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType(object)
	w.CacheControl = "no-cache, no-store, must-revalidate"
	return w
}

func (b *bucketStore) Close() error {
	return b.client.Close()
}

// GCSUploader copies a finished run's results directory to
// gs://<bucket>/<prefix>/<run-id>/.
type GCSUploader struct {
	store  ObjectStore
	bucket string
	prefix string
	logger *logging.Logger
}

// NewGCSUploader connects to Cloud Storage. An empty credentials path uses
// Application Default Credentials.
func NewGCSUploader(ctx context.Context, bucket, prefix, credentials string, logger *logging.Logger) (*GCSUploader, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	var opts []option.ClientOption
	if credentials != "" {
		if _, err := os.Stat(credentials); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentials)
		}
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	store := &bucketStore{client: client, bucket: client.Bucket(bucket)}
	return NewUploader(store, bucket, prefix, logger), nil
}

// NewUploader builds an uploader over any ObjectStore.
func NewUploader(store ObjectStore, bucket, prefix string, logger *logging.Logger) *GCSUploader {
	if logger == nil {
		logger = logging.Nop()
	}
	return &GCSUploader{store: store, bucket: bucket, prefix: prefix, logger: logger}
}

// ObjectName is the object a file under the results directory maps to.
func (u *GCSUploader) ObjectName(runID, rel string) string {
	return path.Join(u.prefix, runID, filepath.ToSlash(rel))
}

// UploadDir uploads every regular file under dir, keeping the relative
// layout (kem/..., sign/...). It returns the number of files uploaded.
func (u *GCSUploader) UploadDir(ctx context.Context, dir, runID string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if err := u.UploadFile(ctx, p, u.ObjectName(runID, rel)); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// UploadFile copies one local file to object.
func (u *GCSUploader) UploadFile(ctx context.Context, localPath, object string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open the local file: %s: %w", localPath, err)
	}
	defer f.Close()

	w := u.store.NewWriter(ctx, object)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to copy local file %s to GCS object %s: %w", localPath, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}
	u.logger.Info("uploaded result file", "file", localPath, "object", "gs://"+u.bucket+"/"+object)
	return nil
}

func (u *GCSUploader) Close() error {
	return u.store.Close()
}

func contentType(object string) string {
	if path.Ext(object) == ".csv" {
		return "text/csv"
	}
	return "application/octet-stream"
}
