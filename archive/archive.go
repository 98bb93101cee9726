// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package archive implements the on-disk ".dfa" framing format: a
// small self-describing container holding the original filename, an
// MD5 checksum, a Huffman code table, and a bit-packed payload. It
// knows nothing about LZ77 or Huffman semantics beyond the wire shape
// of the code table; those stages live in the lz77 and huffman
// packages.
package archive

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cosnicolaou/dfa/huffman"
)

// Extension is the required suffix of an archive path.
const Extension = ".dfa"

// Error reports a defect either in the archive's own framing or in
// its filename/extension.
type Error string

func (e Error) Error() string { return string(e) }

// ErrNotArchive is returned when a path lacks the .dfa extension.
const ErrNotArchive = Error("archive: path does not have a .dfa extension")

// ErrBrokenArchive is returned when the byte stream is truncated or
// malformed at any framing boundary.
const ErrBrokenArchive = Error("archive: truncated or malformed archive")

const (
	filenameLenSize = 2
	checksumSize    = 16
	tableLenSize    = 4
	bitLenSize      = 4
	headerMinSize   = filenameLenSize + checksumSize + tableLenSize + bitLenSize
)

// Archive is the decoded form of a .dfa file's framing: everything
// needed to hand the payload to huffman.Decode and verify the result.
type Archive struct {
	Filename string
	Checksum [16]byte
	Table    huffman.Table
	BitLen   uint32
	Payload  []byte
}

// HasExtension reports whether name ends in Extension.
func HasExtension(name string) bool {
	return strings.HasSuffix(name, Extension)
}

// Marshal frames a into the byte layout described by the archive
// format: filename_len+filename, checksum, table_len+code_table (JSON),
// bit_len, payload.
func Marshal(a *Archive) ([]byte, error) {
	tableJSON, err := marshalTable(a.Table)
	if err != nil {
		return nil, err
	}
	filename := []byte(a.Filename)

	out := make([]byte, 0, headerMinSize+len(filename)+len(tableJSON)+len(a.Payload))
	var tmp2 [2]byte
	var tmp4 [4]byte

	binary.LittleEndian.PutUint16(tmp2[:], uint16(len(filename)))
	out = append(out, tmp2[:]...)
	out = append(out, filename...)
	out = append(out, a.Checksum[:]...)

	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(tableJSON)))
	out = append(out, tmp4[:]...)
	out = append(out, tableJSON...)

	binary.LittleEndian.PutUint32(tmp4[:], a.BitLen)
	out = append(out, tmp4[:]...)
	out = append(out, a.Payload...)

	return out, nil
}

// Unmarshal parses the byte layout written by Marshal. Any truncation
// or length mismatch is reported as ErrBrokenArchive.
func Unmarshal(b []byte) (*Archive, error) {
	if len(b) < filenameLenSize {
		return nil, ErrBrokenArchive
	}
	fl := int(binary.LittleEndian.Uint16(b))
	b = b[filenameLenSize:]
	if len(b) < fl+checksumSize+tableLenSize {
		return nil, ErrBrokenArchive
	}
	filename := string(b[:fl])
	b = b[fl:]

	var checksum [16]byte
	copy(checksum[:], b[:checksumSize])
	b = b[checksumSize:]

	tl := int(binary.LittleEndian.Uint32(b))
	b = b[tableLenSize:]
	if len(b) < tl+bitLenSize {
		return nil, ErrBrokenArchive
	}
	table, err := unmarshalTable(b[:tl])
	if err != nil {
		return nil, ErrBrokenArchive
	}
	b = b[tl:]

	bitLen := binary.LittleEndian.Uint32(b)
	b = b[bitLenSize:]

	wantPayload := (int(bitLen) + 7) / 8
	if len(b) < wantPayload {
		return nil, ErrBrokenArchive
	}
	payload := make([]byte, wantPayload)
	copy(payload, b[:wantPayload])

	return &Archive{
		Filename: filename,
		Checksum: checksum,
		Table:    table,
		BitLen:   bitLen,
		Payload:  payload,
	}, nil
}

// marshalTable converts the dense in-memory Table into the wire's
// JSON object: decimal string keys, '0'/'1' bit-string values.
func marshalTable(t huffman.Table) ([]byte, error) {
	wire := make(map[string]string, 16)
	for v, code := range t {
		if code == "" {
			continue
		}
		wire[strconv.Itoa(v)] = code
	}
	return json.Marshal(wire)
}

// unmarshalTable is the inverse of marshalTable.
func unmarshalTable(b []byte) (huffman.Table, error) {
	var wire map[string]string
	if err := json.Unmarshal(b, &wire); err != nil {
		return huffman.Table{}, fmt.Errorf("archive: code table: %w", err)
	}
	var table huffman.Table
	for k, code := range wire {
		v, err := strconv.Atoi(k)
		if err != nil || v < 0 || v > 255 {
			return huffman.Table{}, fmt.Errorf("archive: code table key %q: %w", k, err)
		}
		table[v] = code
	}
	return table, nil
}
