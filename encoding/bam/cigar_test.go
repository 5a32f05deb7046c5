// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bam

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cigarRE = regexp.MustCompile(`^(\d+)([MIDNSHP=XB])(.*)`)

// makeCigar parses a CIGAR string such as "2S8M1D3M". 'B' produces
// sam.CigarBack.
func makeCigar(t *testing.T, cigar string) sam.Cigar {
	ops := sam.Cigar{}
	for cigar != "" {
		a := cigarRE.FindStringSubmatch(cigar)
		require.NotEmpty(t, a, "bad cigar %q", cigar)
		typ := map[string]sam.CigarOpType{
			"M": sam.CigarMatch,
			"I": sam.CigarInsertion,
			"D": sam.CigarDeletion,
			"N": sam.CigarSkipped,
			"S": sam.CigarSoftClipped,
			"H": sam.CigarHardClipped,
			"P": sam.CigarPadded,
			"=": sam.CigarEqual,
			"X": sam.CigarMismatch,
			"B": sam.CigarBack,
		}[a[2]]
		l, err := strconv.Atoi(a[1])
		require.NoError(t, err)
		ops = append(ops, sam.NewCigarOp(typ, l))
		cigar = a[3]
	}
	return ops
}

func TestClassifyOp(t *testing.T) {
	tests := []struct {
		op   sam.CigarOpType
		want OpClass
	}{
		{sam.CigarMatch, ClassMatch},
		{sam.CigarEqual, ClassMatch},
		{sam.CigarMismatch, ClassMatch},
		{sam.CigarInsertion, ClassQuery},
		{sam.CigarSoftClipped, ClassQuery},
		{sam.CigarDeletion, ClassRef},
		{sam.CigarSkipped, ClassRef},
		{sam.CigarHardClipped, ClassNone},
		{sam.CigarPadded, ClassNone},
		{sam.CigarBack, ClassUnsupported},
		{sam.CigarOpType(15), ClassUnsupported},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, ClassifyOp(test.op), "op %v", test.op)
	}
}

func TestSeekTo(t *testing.T) {
	tests := []struct {
		cigar     string
		target    int
		wantSeq   int
		wantRef   int
		noOverlap bool
	}{
		{"100M", 0, 0, 0, false},
		{"100M", 37, 37, 37, false},
		{"100M", 99, 99, 99, false},
		{"100M", 100, 0, 0, true},
		{"100M", -1, 0, 0, true},
		{"5S95M", 0, 5, 0, false},
		{"5S95M", 10, 15, 10, false},
		{"3H5S95M2H", 0, 5, 0, false},
		{"10=5X", 12, 12, 12, false},
		// Insertions shift the query index but not the reference offset.
		{"3M2I3M", 2, 2, 2, false},
		{"3M2I3M", 3, 5, 3, false},
		// A target inside a deletion resolves to the base after it.
		{"10M5D10M", 9, 9, 9, false},
		{"10M5D10M", 10, 10, 15, false},
		{"10M5D10M", 12, 10, 15, false},
		{"10M5D10M", 15, 10, 15, false},
		{"10M5D10M", 16, 11, 16, false},
		{"10M100N10M", 50, 10, 110, false},
		{"2S3M2I2M1D2M1S", 5, 9, 6, false},
		{"1M1P1M", 1, 1, 1, false},
		// Trailing deletion: no base after it.
		{"5M3D", 6, 0, 0, true},
		// Nothing consumes the reference.
		{"", 0, 0, 0, true},
		{"10S", 0, 0, 0, true},
		{"5I", 0, 0, 0, true},
		{"3H", 0, 0, 0, true},
		{"4D", 0, 0, 0, true},
	}
	for _, test := range tests {
		c := NewCigarCursor(makeCigar(t, test.cigar))
		seq, err := c.SeekTo(test.target)
		if test.noOverlap {
			assert.Equal(t, ErrNoOverlap, err, "cigar %s target %d", test.cigar, test.target)
			continue
		}
		require.NoError(t, err, "cigar %s target %d", test.cigar, test.target)
		assert.Equal(t, test.wantSeq, seq, "cigar %s target %d", test.cigar, test.target)
		assert.Equal(t, test.wantSeq, c.SeqIndex())
		assert.Equal(t, test.wantRef, c.RefOffset(), "cigar %s target %d", test.cigar, test.target)
		assert.True(t, c.OnBase())
	}
}

func TestSeekToIdentityOnPureMatch(t *testing.T) {
	for _, cigar := range []string{"1M", "7M", "150M", "150="} {
		c := NewCigarCursor(makeCigar(t, cigar))
		n, _ := c.cigar.Lengths()
		for k := 0; k < n; k++ {
			seq, err := c.SeekTo(k)
			require.NoError(t, err)
			assert.Equal(t, k, seq)
		}
	}
}

type step struct {
	ref, seq int
	onBase   bool
}

func walk(t *testing.T, cigar string, start int) []step {
	c := NewCigarCursor(makeCigar(t, cigar))
	_, err := c.SeekTo(start)
	require.NoError(t, err)
	steps := []step{{c.RefOffset(), c.SeqIndex(), c.OnBase()}}
	for {
		onBase, err := c.Advance()
		if err == ErrCigarExhausted {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, onBase, c.OnBase())
		steps = append(steps, step{c.RefOffset(), c.SeqIndex(), onBase})
	}
	// Exhaustion is sticky.
	_, err = c.Advance()
	assert.Equal(t, ErrCigarExhausted, err)
	return steps
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		cigar string
		start int
		want  []step
	}{
		{"3M", 0, []step{{0, 0, true}, {1, 1, true}, {2, 2, true}}},
		{"3M", 2, []step{{2, 2, true}}},
		{"1S2M1S", 0, []step{{0, 1, true}, {1, 2, true}}},
		{"2M2I2M", 1, []step{{1, 1, true}, {2, 4, true}, {3, 5, true}}},
		{"2M2D2M", 0, []step{{0, 0, true}, {1, 1, true}, {2, 2, false}, {3, 2, false}, {4, 2, true}, {5, 3, true}}},
		{"1M1N1M", 0, []step{{0, 0, true}, {1, 1, false}, {2, 1, true}}},
		{"1M1P1H1M", 0, []step{{0, 0, true}, {1, 1, true}}},
		{"2M3D", 0, []step{{0, 0, true}, {1, 1, true}, {2, 2, false}, {3, 2, false}, {4, 2, false}}},
		{"2S3M2I2M1D2M1S", 0, []step{
			{0, 2, true}, {1, 3, true}, {2, 4, true},
			{3, 7, true}, {4, 8, true},
			{5, 9, false},
			{6, 9, true}, {7, 10, true},
		}},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, walk(t, test.cigar, test.start), "cigar %s start %d", test.cigar, test.start)
	}
}

func TestAdvanceIsMonotonic(t *testing.T) {
	for _, cigar := range []string{"100M", "5S20M3I10M2D5M4N30M5S", "1M1I1M1D1M1I1M", "2H10=2X3I8M2H"} {
		steps := walk(t, cigar, 0)
		refLen, seqLen := makeCigar(t, cigar).Lengths()
		assert.Equal(t, refLen, len(steps), cigar)
		lastSeq := -1
		for i, s := range steps {
			assert.Equal(t, i, s.ref, cigar)
			if s.onBase {
				assert.True(t, s.seq > lastSeq, "cigar %s step %d", cigar, i)
				assert.True(t, s.seq < seqLen, "cigar %s step %d", cigar, i)
				lastSeq = s.seq
			}
		}
	}
}

func TestUnsupportedOp(t *testing.T) {
	c := NewCigarCursor(makeCigar(t, "2B5M"))
	_, err := c.SeekTo(0)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.NotSupported, err), "%v", err)

	c = NewCigarCursor(makeCigar(t, "5M2B5M"))
	_, err = c.SeekTo(6)
	assert.True(t, errors.Is(errors.NotSupported, err), "%v", err)
	// Positions before the unsupported op are still reachable.
	seq, err := c.SeekTo(3)
	require.NoError(t, err)
	assert.Equal(t, 3, seq)
	_, err = c.Advance()
	require.NoError(t, err)
	_, err = c.Advance()
	assert.True(t, errors.Is(errors.NotSupported, err), "%v", err)

	cigar := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 3), sam.CigarOp(5<<4 | 15)}
	assert.True(t, errors.Is(errors.NotSupported, ValidateCigar(cigar)))
	assert.NoError(t, ValidateCigar(makeCigar(t, "2S3M2I2M1D2M1S")))
}

func TestAdvanceBeforeSeek(t *testing.T) {
	c := NewCigarCursor(makeCigar(t, "10M"))
	_, err := c.Advance()
	assert.Equal(t, ErrCigarExhausted, err)
}
