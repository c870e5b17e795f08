// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSScheme prefixes object URIs accepted by OpenGCS.
const GCSScheme = "gs://"

// IsGCS reports whether uri names a Cloud Storage object.
func IsGCS(uri string) bool {
	return strings.HasPrefix(uri, GCSScheme)
}

// ParseGCS splits gs://bucket/object into its bucket and object names.
func ParseGCS(uri string) (bucket, object string, err error) {
	if !IsGCS(uri) {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	rest := strings.TrimPrefix(uri, GCSScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs:// uri needs bucket and object: %q", uri)
	}
	return bucket, object, nil
}

// OpenGCS loads a bundle stored as a Cloud Storage object.
//
// Description:
//
//	The object is downloaded once, bounded by MaxEntryBytes, and then
//	handled like FromBytes. A client is created per call with the
//	configured credentials file or endpoint.
//
// Inputs:
//
//	ctx - Context for the download.
//	uri - Object URI of the form gs://bucket/path/to/object.
//
// Outputs:
//
//	*Bundle - The loaded bundle, named after the object's base name.
//	error   - URI, client, download, or bundle errors.
func (r *Reader) OpenGCS(ctx context.Context, uri string) (*Bundle, error) {
	bucket, object, err := ParseGCS(uri)
	if err != nil {
		return nil, err
	}

	var clientOpts []option.ClientOption
	if r.opts.GCSCredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(r.opts.GCSCredentialsFile))
	}
	if r.opts.GCSEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(r.opts.GCSEndpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer rc.Close()

	if rc.Attrs.Size > r.opts.MaxEntryBytes {
		return nil, fmt.Errorf("read %s: %w", uri, ErrEntryTooLarge)
	}
	data, err := r.readLimited(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}

	r.logger.Info("downloaded bundle",
		slog.String("bucket", bucket),
		slog.String("object", object),
		slog.Int("bytes", len(data)),
	)
	return r.FromBytes(path.Base(object), data)
}
