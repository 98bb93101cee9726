// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package lz77

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cosnicolaou/dfa/internal/testutil"
)

func cw(offset, length uint8, literal byte) Codeword {
	return Codeword{Offset: offset, Length: length, Literal: literal}
}

func TestEncodeEdgeCases(t *testing.T) {
	for i, tc := range []struct {
		data []byte
		want []Codeword
	}{
		{nil, nil},
		{[]byte("a"), []Codeword{cw(0, 0, 'a')}},
		{[]byte("ab"), []Codeword{cw(0, 0, 'a'), cw(0, 0, 'b')}},
	} {
		if got, want := Encode(tc.data), tc.want; !codewordsEqual(got, want) {
			t.Errorf("%v: got %v, want %v", i, got, want)
		}
	}
}

func TestEncodeBasic(t *testing.T) {
	data := []byte(strings.Repeat("ab", 7)) // 14 bytes
	want := []Codeword{cw(0, 0, 'a'), cw(0, 0, 'b'), cw(2, 11, 'b')}
	if got := encode(data, 14, nil); !codewordsEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEncodeSplit(t *testing.T) {
	data := []byte(strings.Repeat(strings.Repeat("ab", 7), 10)) // 140 bytes
	want := []Codeword{cw(0, 0, 'a'), cw(0, 0, 'b'), cw(2, 137, 'b')}
	for _, window := range []int{140, 256} {
		if got := encode(data, window, nil); !codewordsEqual(got, want) {
			t.Errorf("window=%v: got %v, want %v", window, got, want)
		}
	}
}

func TestEncodeSplitAcrossWindow(t *testing.T) {
	data := []byte(strings.Repeat(strings.Repeat("ab", 7), 30)) // 420 bytes
	got := Encode(data)
	var sawSplit bool
	for _, c := range got {
		if c.Length == Window-1 {
			sawSplit = true
		}
		if int(c.Length) >= Window {
			t.Fatalf("codeword length %v >= window %v: %v", c.Length, Window, c)
		}
		if int(c.Offset) > Window {
			t.Fatalf("codeword offset %v > window %v: %v", c.Offset, Window, c)
		}
	}
	if !sawSplit {
		t.Errorf("expected at least one split codeword of length %v", Window-1)
	}
	back, err := Decode(got)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("round trip mismatch")
	}
}

func TestDecodeOverlap(t *testing.T) {
	codewords := []Codeword{cw(0, 0, 'a'), cw(0, 0, 'b'), cw(2, 11, 'b')}
	got, err := Decode(codewords)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := []byte(strings.Repeat("ab", 7)); !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecodeOutOfWindow(t *testing.T) {
	_, err := Decode([]Codeword{cw(1, 0, 'a')})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestRoundTripRandom(t *testing.T) {
	for _, size := range []int{0, 1, 2, 255, 256, 257, 1024, 4096} {
		data := testutil.GenPredictableRandomData(size)
		encoded := Encode(data)
		for _, c := range encoded {
			if int(c.Offset) > Window {
				t.Fatalf("size=%v: offset %v exceeds window", size, c.Offset)
			}
			if int(c.Length) >= Window {
				t.Fatalf("size=%v: length %v not < window", size, c.Length)
			}
		}
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("size=%v: decode: %v", size, err)
		}
		if !bytes.Equal(decoded, data) {
			t.Errorf("size=%v: round trip mismatch", size)
		}
	}
}

func TestEncodeProgressIsIncremental(t *testing.T) {
	data := []byte(strings.Repeat("abcdefgh", 64)) // 512 bytes, many codewords
	var reports []int
	codewords := Encode(data, WithProgress(func(consumed, total int) {
		if total != len(data) {
			t.Fatalf("total: got %v, want %v", total, len(data))
		}
		reports = append(reports, consumed)
	}))
	if len(reports) != len(codewords) {
		t.Fatalf("expected one progress report per codeword: got %v reports, %v codewords", len(reports), len(codewords))
	}
	if len(reports) < 2 {
		t.Fatalf("expected more than one incremental report, got %v", len(reports))
	}
	for i, consumed := range reports {
		if i > 0 && consumed <= reports[i-1] {
			t.Fatalf("report %v: consumed %v did not increase from %v", i, consumed, reports[i-1])
		}
	}
	if last := reports[len(reports)-1]; last != len(data) {
		t.Errorf("final report: got %v, want %v", last, len(data))
	}
}

func TestDecodeProgressIsIncremental(t *testing.T) {
	data := []byte(strings.Repeat("abcdefgh", 64))
	codewords := Encode(data)
	decoded, total := 0, 0
	var reports []int
	out, err := Decode(codewords, WithDecodeProgress(func(produced, tot int) {
		total = tot
		reports = append(reports, produced)
	}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	decoded = len(out)
	if total != decoded {
		t.Errorf("total: got %v, want %v", total, decoded)
	}
	if len(reports) != len(codewords) {
		t.Fatalf("expected one progress report per codeword: got %v reports, %v codewords", len(reports), len(codewords))
	}
	for i, produced := range reports {
		if i > 0 && produced <= reports[i-1] {
			t.Fatalf("report %v: produced %v did not increase from %v", i, produced, reports[i-1])
		}
	}
	if last := reports[len(reports)-1]; last != decoded {
		t.Errorf("final report: got %v, want %v", last, decoded)
	}
}

func codewordsEqual(a, b []Codeword) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
