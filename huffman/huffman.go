// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package huffman builds a canonical-by-construction Huffman prefix
// code from byte frequencies and implements the bit-level encode and
// decode for it. Unlike a decoder that is handed pre-computed code
// lengths, this package owns the agglomerative tree build: leaves are
// merged two at a time off a min-priority queue until a single root
// remains, and codes are read back off the root-to-leaf path.
package huffman

import (
	"container/heap"

	"github.com/cosnicolaou/dfa/internal/bitstream"
)

// node is a tagged variant: a leaf carries a byte value and weight; an
// internal node carries only the summed weight and its two children.
// The bit a child is reached by (0 for left, 1 for right) is never
// stored on the node itself — it is implicit in which field of the
// parent points at it, and is recovered purely by the traversal in
// codesFrom.
type node struct {
	weight int
	value  byte
	leaf   bool
	seq    int // insertion order, used to break weight ties deterministically
	left   *node
	right  *node
}

// Table maps a byte value to its code, written as a string of '0'/'1'
// characters. A dense [256]string is used rather than a map so that
// an absent byte (one that never appeared in the input) is simply the
// zero value; every real code has length >= 1 so "" is an unambiguous
// sentinel for absence.
type Table [256]string

// Error reports a defect in a Huffman-encoded bit stream.
type Error string

func (e Error) Error() string { return string(e) }

// ErrBrokenArchive is returned by Decode when the payload's bits do
// not resolve into a whole number of code-table entries.
const ErrBrokenArchive = Error("huffman: undecodable residual bits")

// priorityQueue is a binary min-heap on weight, with insertion order
// as an explicit, documented tie-break: the byte seen earliest in the
// input (and so pushed onto the queue first) sorts first among nodes
// of equal weight. container/heap does not guarantee this on its own,
// hence the seq field.
type priorityQueue []*node

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].weight != pq[j].weight {
		return pq[i].weight < pq[j].weight
	}
	return pq[i].seq < pq[j].seq
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)   { *pq = append(*pq, x.(*node)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// buildTree runs the agglomerative Huffman construction described in
// the spec: repeatedly pop the two lowest-weight nodes and push back
// their parent, until one node — the root — remains. Returns nil for
// empty input.
func buildTree(data []byte) *node {
	var freq [256]int
	var order []byte
	var seen [256]bool
	for _, b := range data {
		if !seen[b] {
			seen[b] = true
			order = append(order, b)
		}
		freq[b]++
	}
	if len(order) == 0 {
		return nil
	}

	pq := make(priorityQueue, 0, len(order))
	for i, b := range order {
		pq = append(pq, &node{weight: freq[b], value: b, leaf: true, seq: i})
	}
	heap.Init(&pq)

	next := len(order)
	for pq.Len() > 1 {
		a := heap.Pop(&pq).(*node)
		b := heap.Pop(&pq).(*node)
		parent := &node{weight: a.weight + b.weight, seq: next, left: a, right: b}
		next++
		heap.Push(&pq, parent)
	}
	return pq[0]
}

// codesFrom walks the tree and records, for every leaf, the bit
// string formed by the path from the root. A tree with a single leaf
// (one distinct byte in the input) is the degenerate case called out
// in the spec: that byte's code is hardcoded to "1" rather than the
// empty string a literal root-to-leaf walk would produce.
func codesFrom(root *node) Table {
	var table Table
	if root == nil {
		return table
	}
	if root.leaf {
		table[root.value] = "1"
		return table
	}
	var walk func(n *node, code string)
	walk = func(n *node, code string) {
		if n.leaf {
			table[n.value] = code
			return
		}
		walk(n.left, code+"0")
		walk(n.right, code+"1")
	}
	walk(root, "")
	return table
}

// BuildTable computes the canonical code table for data, per the
// tree-construction and code-extraction rules above.
func BuildTable(data []byte) Table {
	return codesFrom(buildTree(data))
}

// Encode returns the code table for data together with the packed
// bit payload and its exact bit length (the wire format needs the
// latter since the payload is padded to a byte boundary).
func Encode(data []byte) (table Table, payload []byte, bitLen int) {
	table = BuildTable(data)
	var w bitstream.Writer
	for _, b := range data {
		w.WriteString(table[b])
	}
	return table, w.Bytes(), w.Len()
}

// decodeNode is the mirror of node used only for prefix matching
// during Decode; it is built directly from the wire Table rather than
// reusing the encode-side tree, since a decoder may receive a table
// whose originating tree no longer exists (it came off the wire).
type decodeNode struct {
	leaf  bool
	value byte
	zero  *decodeNode
	one   *decodeNode
}

func buildDecodeTree(table Table) *decodeNode {
	root := &decodeNode{}
	for v := 0; v < len(table); v++ {
		code := table[v]
		if code == "" {
			continue
		}
		n := root
		for i := 0; i < len(code); i++ {
			last := i == len(code)-1
			if code[i] == '0' {
				if n.zero == nil {
					n.zero = &decodeNode{}
				}
				n = n.zero
			} else {
				if n.one == nil {
					n.one = &decodeNode{}
				}
				n = n.one
			}
			if last {
				n.leaf = true
				n.value = byte(v)
			}
		}
	}
	return root
}

// Decode expands payload into bitLen valid bits and greedily matches
// code-table prefixes against them, emitting the associated byte for
// each match. Residual bits that cannot complete a code are reported
// as ErrBrokenArchive.
func Decode(table Table, payload []byte, bitLen int) ([]byte, error) {
	if bitLen == 0 {
		return nil, nil
	}
	root := buildDecodeTree(table)
	r := bitstream.NewReader(payload, bitLen)
	var out []byte
	for r.Remaining() > 0 {
		n := root
		for !n.leaf {
			bit := r.ReadBit()
			if r.Err() != nil {
				return nil, ErrBrokenArchive
			}
			if bit == 0 {
				n = n.zero
			} else {
				n = n.one
			}
			if n == nil {
				return nil, ErrBrokenArchive
			}
		}
		out = append(out, n.value)
	}
	return out, nil
}
