// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command dfa compresses a file into a self-describing .dfa archive,
// or restores one, using the LZ77 + Huffman codec implemented by the
// github.com/cosnicolaou/dfa package.
package main

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloudeng.io/cmdutil"
	cerrors "cloudeng.io/errors"
	"github.com/cosnicolaou/dfa"
	"github.com/cosnicolaou/dfa/storage"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"
)

var (
	flagDecode   bool
	flagName     string
	flagOutput   string
	flagProgress bool
)

var rootCmd = &cobra.Command{
	Use:   "dfa [flags] path",
	Short: "compress or decompress a file with the LZ77+Huffman dfa codec",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagDecode, "decode", "d", false, "decode an archive instead of encoding a file")
	rootCmd.Flags().StringVarP(&flagName, "name", "n", "", "base name of the output archive, no extension (encode mode only)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "destination path for the restored file (decode mode only)")
	rootCmd.Flags().BoolVar(&flagProgress, "progress", false, "display a progress bar")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	cmdutil.HandleSignals(cancel, os.Interrupt)
	defer cancel()

	if flagDecode {
		return runDecode(ctx, args[0])
	}
	return runEncode(ctx, args[0])
}

// isTTY gates the progress bar per --progress, mirroring the
// teacher's rule of only drawing a bar when stdout is a real terminal.
func isTTY() bool {
	return terminal.IsTerminal(int(os.Stdout.Fd()))
}

func newBar(total int64, w *os.File) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetPredictTime(true))
}

func runEncode(ctx context.Context, path string) error {
	errs := &cerrors.M{}

	data, cleanup, err := storage.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { errs.Append(cleanup(ctx)) }()

	archiveName := flagName
	if archiveName == "" {
		archiveName = dfa.DefaultArchiveName(time.Now())
	} else {
		archiveName += ".dfa"
	}

	var copts []dfa.CompressOption
	if flagProgress && isTTY() {
		bar := newBar(int64(len(data)), os.Stderr)
		copts = append(copts, dfa.WithProgress(func(p dfa.Progress) { bar.Set(p.Bytes) }))
	}

	start := time.Now()
	out, err := dfa.Compress(data, filepath.Base(path), copts...)
	if err != nil {
		return err
	}

	wr, wcleanup, err := storage.Create(ctx, archiveName)
	if err != nil {
		return err
	}
	_, werr := wr.Write(out)
	errs.Append(werr)
	errs.Append(wcleanup(ctx))
	if err := errs.Err(); err != nil {
		return err
	}

	ratio := (1 - float64(len(out))/float64(max(1, len(data)))) * 100
	sum := md5.Sum(data)
	fmt.Printf("%s: ratio %.2f%%, elapsed %v, checksum %x\n", archiveName, ratio, time.Since(start), sum)
	return nil
}

func runDecode(ctx context.Context, path string) error {
	errs := &cerrors.M{}

	data, cleanup, err := storage.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { errs.Append(cleanup(ctx)) }()

	var dopts []dfa.DecompressOption
	if flagProgress && isTTY() {
		bar := newBar(int64(len(data)), os.Stderr)
		dopts = append(dopts, dfa.WithProgress(func(p dfa.Progress) { bar.Set(p.Bytes) }))
	}

	start := time.Now()
	originalName, restored, err := dfa.Decompress(path, data, dopts...)
	if err != nil {
		var de *dfa.DeflateError
		if errors.As(err, &de) {
			return de
		}
		return err
	}

	outPath := flagOutput
	if outPath == "" {
		// Strip any directory component the archive may record: the
		// output always lands relative to the current directory unless
		// the caller explicitly names a destination with -o.
		outPath = filepath.Base(originalName)
	}

	wr, wcleanup, err := storage.Create(ctx, outPath)
	if err != nil {
		return err
	}
	_, werr := wr.Write(restored)
	errs.Append(werr)
	errs.Append(wcleanup(ctx))
	if err := errs.Err(); err != nil {
		return err
	}

	fmt.Printf("%s: restored %s, elapsed %v\n", path, outPath, time.Since(start))
	return nil
}
