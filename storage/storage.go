// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package storage opens and creates the files the dfa CLI operates
// on, local or on S3, behind a single pair of functions. It exists so
// that cmd/dfa need not care whether "path" is a local filesystem
// path or an s3://bucket/key URL.
package storage

import (
	"context"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
)

func init() {
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

// Cleanup closes whatever Open or Create returned.
type Cleanup func(context.Context) error

// Open reads the entirety of name (a local path or an s3:// URL) into
// memory, returning its bytes and a Cleanup to release the underlying
// handle. The dfa archive format is framed in one pass over the whole
// input, so there is no benefit to streaming it.
func Open(ctx context.Context, name string) ([]byte, Cleanup, error) {
	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	buf, err := io.ReadAll(f.Reader(ctx))
	if err != nil {
		f.Close(ctx)
		return nil, nil, err
	}
	return buf, f.Close, nil
}

// Create opens name (a local path or an s3:// URL) for writing. An
// empty name means stdout, matching the teacher's convention for
// streaming output to the calling shell.
func Create(ctx context.Context, name string) (io.Writer, Cleanup, error) {
	if len(name) == 0 {
		return os.Stdout, func(context.Context) error { return nil }, nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}
