// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package lz77 implements the sliding-window LZ77 stage of the dfa
// codec: a byte buffer is turned into an ordered sequence of
// (offset, length, literal) codewords, and that sequence can be
// replayed to reconstruct the original buffer exactly.
package lz77

import "fmt"

// Window is the fixed sliding window size used by Encode and Decode.
// It is also the ceiling on both the offset and length fields of a
// wire Codeword, which is why both fields fit in a single byte.
const Window = 256

// Codeword directs the decoder to copy Length bytes from Offset
// positions behind the current output cursor, then append Literal.
// Offset == 0 means "no back-reference; just emit Literal".
type Codeword struct {
	Offset  uint8
	Length  uint8
	Literal byte
}

// Error is returned when an internal invariant of the codec is
// violated; it should never occur for a Codeword stream produced by
// Encode.
type Error string

func (e Error) Error() string { return string(e) }

// ErrOutOfWindow is returned by Decode when a codeword's offset
// exceeds the number of bytes written so far.
const ErrOutOfWindow = Error("lz77: offset out of window")

// ErrNegativeOffset names the negative-offset failure. Codeword.Offset
// is an unsigned byte, so an offset can never be negative and Decode
// never returns this error.
const ErrNegativeOffset = Error("lz77: negative offset")

// encodeOpts holds the configuration built up by EncodeOption values.
type encodeOpts struct {
	onProgress func(consumed, total int)
}

// EncodeOption configures an Encode call.
type EncodeOption func(*encodeOpts)

// WithProgress registers a callback invoked after every codeword is
// emitted, reporting the number of input bytes consumed so far
// against the total — true incremental, byte-level progress rather
// than a single after-the-fact summary. It is called synchronously
// and must not block.
func WithProgress(fn func(consumed, total int)) EncodeOption {
	return func(o *encodeOpts) { o.onProgress = fn }
}

// Encode converts data into an ordered codeword sequence using a
// fixed 256-byte sliding window. Matches are searched starting at the
// most recent position (offset 1) and widening outward, so ties are
// broken in favor of the smallest offset — the most recent occurrence
// wins, since a later, equal-length candidate never replaces it.
func Encode(data []byte, opts ...EncodeOption) []Codeword {
	var o encodeOpts
	for _, fn := range opts {
		fn(&o)
	}
	return encode(data, Window, o.onProgress)
}

// encode is the window-parameterized implementation backing Encode;
// kept internal since the wire format fixes the window at 256, but
// exercised directly by tests against the smaller windows used in the
// algorithm's worked examples.
func encode(data []byte, window int, onProgress func(consumed, total int)) []Codeword {
	var out []Codeword
	for pos := 0; pos < len(data); {
		offset, length := longestMatch(data, pos, window)
		literal := data[pos+length]
		// Split on length >= window, not length > window: a residual
		// codeword's length must fit the invariant length < window so
		// that it serializes into a single byte, even though a match
		// of exactly window bytes would otherwise slip through. Each
		// split codeword copies window-1 bytes at the same offset and
		// carries the input byte that follows them as its literal, so
		// it covers exactly window bytes of input.
		for length > window-1 {
			out = append(out, Codeword{Offset: uint8(offset), Length: uint8(window - 1), Literal: data[pos+window-1]})
			pos += window
			length -= window
			if onProgress != nil {
				onProgress(pos, len(data))
			}
		}
		out = append(out, Codeword{Offset: uint8(offset), Length: uint8(length), Literal: literal})
		pos += length + 1
		if onProgress != nil {
			onProgress(pos, len(data))
		}
	}
	return out
}

// longestMatch finds the longest back-reference starting at pos
// against earlier data within window bytes, returning its offset and
// length (0 if no match was found). Ties are broken by smallest
// offset: the search runs from k=1 upward and only replaces the best
// candidate on strict improvement.
func longestMatch(data []byte, pos, window int) (offset, length int) {
	for k := 1; k < window && pos-k >= 0; k++ {
		l := matchLength(data, pos-k, pos)
		if l > length {
			length = l
			offset = k
		}
	}
	return offset, length
}

// matchLength returns the length of the run of equal bytes starting
// at matchPos against the run starting at pos, stopping one byte
// short of the end of the buffer: the final byte of data may never
// participate in a match and must be emitted as a literal.
func matchLength(data []byte, matchPos, pos int) int {
	length := 0
	for pos+length+1 < len(data) {
		if data[matchPos+length] != data[pos+length] {
			break
		}
		length++
	}
	return length
}

// decodeOpts holds the configuration built up by DecodeOption values.
type decodeOpts struct {
	onProgress func(produced, total int)
}

// DecodeOption configures a Decode call.
type DecodeOption func(*decodeOpts)

// WithDecodeProgress registers a callback invoked after every
// codeword is replayed, reporting the number of output bytes produced
// so far against the total bytes the codeword stream will produce. It
// is called synchronously and must not block.
func WithDecodeProgress(fn func(produced, total int)) DecodeOption {
	return func(o *decodeOpts) { o.onProgress = fn }
}

// Decode replays a codeword sequence, reconstructing the original
// byte buffer. Overlapping back-references (Offset < Length) are
// supported by appending one byte at a time, reading each source byte
// only after any earlier byte in the same copy has been written —
// this is what makes run-length patterns like "aaaaa...a" affordable
// to encode as a single codeword.
func Decode(codewords []Codeword, opts ...DecodeOption) ([]byte, error) {
	var o decodeOpts
	for _, fn := range opts {
		fn(&o)
	}
	total := 0
	for _, cw := range codewords {
		total += int(cw.Length) + 1
	}

	var buf []byte
	for _, cw := range codewords {
		offset := int(cw.Offset)
		if offset > len(buf) {
			return nil, fmt.Errorf("%w: offset %d > buffer length %d", ErrOutOfWindow, offset, len(buf))
		}
		if offset > 0 {
			src := len(buf) - offset
			for i := 0; i < int(cw.Length); i++ {
				buf = append(buf, buf[src+i])
			}
		}
		buf = append(buf, cw.Literal)
		if o.onProgress != nil {
			o.onProgress(len(buf), total)
		}
	}
	return buf, nil
}
