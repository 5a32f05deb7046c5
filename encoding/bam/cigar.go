// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bam

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

// OpClass groups CIGAR operation types by what they consume.
type OpClass uint8

const (
	// ClassUnsupported covers CigarBack and any type outside the SAM table.
	ClassUnsupported OpClass = iota
	// ClassMatch ops (M, =, X) consume both reference and query.
	ClassMatch
	// ClassQuery ops (I, S) consume query only.
	ClassQuery
	// ClassRef ops (D, N) consume reference only.
	ClassRef
	// ClassNone ops (H, P) consume neither.
	ClassNone
)

var opClassTable = [...]OpClass{
	sam.CigarMatch:       ClassMatch,
	sam.CigarInsertion:   ClassQuery,
	sam.CigarDeletion:    ClassRef,
	sam.CigarSkipped:     ClassRef,
	sam.CigarSoftClipped: ClassQuery,
	sam.CigarHardClipped: ClassNone,
	sam.CigarPadded:      ClassNone,
	sam.CigarEqual:       ClassMatch,
	sam.CigarMismatch:    ClassMatch,
	sam.CigarBack:        ClassUnsupported,
}

// ClassifyOp returns the consumption class of t.
func ClassifyOp(t sam.CigarOpType) OpClass {
	if int(t) >= len(opClassTable) {
		return ClassUnsupported
	}
	return opClassTable[t]
}

var (
	// ErrNoOverlap is returned by CigarCursor.SeekTo when the target reference
	// offset is not covered by any sequence-backed base of the alignment.
	ErrNoOverlap = errors.E(errors.NotExist, "bam: reference offset not covered by cigar")
	// ErrCigarExhausted is returned by CigarCursor.Advance once no
	// reference-consuming operation remains.
	ErrCigarExhausted = errors.E(errors.NotExist, "bam: cigar exhausted")
)

func unsupportedOpError(op sam.CigarOp, idx int) error {
	return errors.E(errors.NotSupported, fmt.Sprintf("bam: unsupported cigar operation %v at index %d", op, idx))
}

// ValidateCigar returns an errors.NotSupported error for the first operation
// that CigarCursor cannot traverse, or nil.
func ValidateCigar(cigar sam.Cigar) error {
	for i, co := range cigar {
		if ClassifyOp(co.Type()) == ClassUnsupported {
			return unsupportedOpError(co, i)
		}
	}
	return nil
}

// CigarCursor maps reference offsets, measured from the alignment start, to
// indices into the read's query sequence.
//
// A CigarCursor is positioned with SeekTo and then stepped one reference base
// at a time with Advance. It is a small value type; create one per traversal
// and do not share it between goroutines.
type CigarCursor struct {
	cigar sam.Cigar
	// opIdx is the index of the op covering the current reference position.
	opIdx int
	// opOff is the offset of the current position within cigar[opIdx].
	opOff int
	// nQuery is the number of query bases consumed up to and including the
	// current position.
	nQuery int
	refOff int
	onBase bool
	done   bool
}

// NewCigarCursor creates an unpositioned cursor over cigar. SeekTo must be
// called before Advance.
func NewCigarCursor(cigar sam.Cigar) CigarCursor {
	return CigarCursor{cigar: cigar, done: true}
}

// SeqIndex returns the query index of the current base. When the cursor sits
// inside a deletion or reference skip, it returns the index of the next query
// base instead.
func (c *CigarCursor) SeqIndex() int {
	if c.onBase {
		return c.nQuery - 1
	}
	return c.nQuery
}

// RefOffset returns the current reference offset relative to the alignment
// start.
func (c *CigarCursor) RefOffset() int { return c.refOff }

// OnBase reports whether the current position is backed by a query base.
func (c *CigarCursor) OnBase() bool { return c.onBase }

// SeekTo positions the cursor on the query base aligned to refTarget and
// returns its query index. If refTarget falls inside a deletion or reference
// skip, the cursor lands on the first query base after that region, and
// RefOffset reports that boundary rather than refTarget.
//
// SeekTo returns ErrNoOverlap if refTarget is negative or lies beyond the last
// aligned base, and an errors.NotSupported error if it meets an operation it
// cannot traverse. Any earlier position is discarded.
func (c *CigarCursor) SeekTo(refTarget int) (int, error) {
	*c = CigarCursor{cigar: c.cigar, done: true}
	if refTarget < 0 {
		return -1, ErrNoOverlap
	}
	remaining := refTarget
	nQuery, refOff := 0, 0
	for i, co := range c.cigar {
		n := co.Len()
		switch ClassifyOp(co.Type()) {
		case ClassMatch:
			if remaining < n {
				c.opIdx = i
				c.opOff = remaining
				c.nQuery = nQuery + remaining + 1
				c.refOff = refOff + remaining
				c.onBase = true
				c.done = false
				return c.nQuery - 1, nil
			}
			remaining -= n
			nQuery += n
			refOff += n
		case ClassQuery:
			nQuery += n
		case ClassRef:
			remaining -= n
			if remaining < 0 {
				remaining = 0
			}
			refOff += n
		case ClassNone:
		default:
			return -1, unsupportedOpError(co, i)
		}
	}
	return -1, ErrNoOverlap
}

// Advance moves the cursor forward by exactly one reference position and
// reports whether the new position is backed by a query base. Insertions and
// clips between the old and new positions are stepped over.
//
// Advance returns ErrCigarExhausted when no reference position remains; the
// cursor stays exhausted afterwards.
func (c *CigarCursor) Advance() (bool, error) {
	if c.done {
		return false, ErrCigarExhausted
	}
	if co := c.cigar[c.opIdx]; c.opOff+1 < co.Len() {
		c.opOff++
		c.refOff++
		if c.onBase {
			c.nQuery++
		}
		return c.onBase, nil
	}
	for i := c.opIdx + 1; i < len(c.cigar); i++ {
		co := c.cigar[i]
		n := co.Len()
		switch ClassifyOp(co.Type()) {
		case ClassMatch, ClassRef:
			if n == 0 {
				continue
			}
			c.opIdx = i
			c.opOff = 0
			c.refOff++
			c.onBase = ClassifyOp(co.Type()) == ClassMatch
			if c.onBase {
				c.nQuery++
			}
			return c.onBase, nil
		case ClassQuery:
			c.nQuery += n
		case ClassNone:
		default:
			c.done = true
			c.onBase = false
			return false, unsupportedOpError(co, i)
		}
	}
	c.done = true
	c.onBase = false
	return false, ErrCigarExhausted
}
