// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package overlap

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const (
	r1F = sam.Paired | sam.Read1 | sam.MateReverse
	r2R = sam.Paired | sam.Read2 | sam.Reverse
)

func newMate(t *testing.T, name string, flags sam.Flags, pos, matePos int, qual byte) *sam.Record {
	r := newRead(t, name, pos, "10M", "ACGTACGTAC", fillQual(10, qual))
	r.Flags = flags
	r.MateRef = chr1
	r.MatePos = matePos
	return r
}

func names(recs []*sam.Record) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func addAll(t *testing.T, p *Pairer, recs ...*sam.Record) []string {
	var out []string
	for _, r := range recs {
		ready, err := p.Add(r)
		assert.NoError(t, err)
		out = append(out, names(ready)...)
	}
	return out
}

func TestPairer(t *testing.T) {
	p := NewPairer(DefaultPairerOpts)
	first := newMate(t, "p1", r1F, 0, 5, 30)
	single := newRead(t, "s1", 2, "10M", "ACGTACGTAC", fillQual(10, 30))
	second := newMate(t, "p1", r2R, 5, 0, 20)

	ready, err := p.Add(first)
	assert.NoError(t, err)
	expect.EQ(t, len(ready), 0)
	ready, err = p.Add(single)
	assert.NoError(t, err)
	expect.EQ(t, len(ready), 0)
	ready, err = p.Add(second)
	assert.NoError(t, err)
	expect.EQ(t, names(ready), []string{"p1", "s1", "p1"})
	expect.True(t, ready[0] == first)
	expect.True(t, ready[2] == second)

	// The first mate's tail overlaps the second mate's head.
	expect.EQ(t, first.Qual, []byte{30, 30, 30, 30, 30, 24, 24, 24, 24, 24})
	expect.EQ(t, second.Qual, []byte{0, 0, 0, 0, 0, 20, 20, 20, 20, 20})
	expect.EQ(t, single.Qual, fillQual(10, 30))

	stats := p.Stats()
	expect.EQ(t, stats.Records, 3)
	expect.EQ(t, stats.Pairs, 1)
	expect.EQ(t, stats.Overlap, 5)
	expect.EQ(t, stats.Orphans, 0)
	expect.EQ(t, len(p.Flush()), 0)
}

func TestPairerSamePos(t *testing.T) {
	p := NewPairer(DefaultPairerOpts)
	a := newMate(t, "q", r1F, 50, 50, 30)
	b := newMate(t, "q", r2R, 50, 50, 30)
	expect.EQ(t, addAll(t, p, a, b), []string{"q", "q"})
	expect.EQ(t, a.Qual, fillQual(10, 60))
	expect.EQ(t, b.Qual, fillQual(10, 0))
}

func TestPairerOrphans(t *testing.T) {
	p := NewPairer(DefaultPairerOpts)
	got := addAll(t, p,
		newMate(t, "o1", r1F, 20, 25, 30),
		newMate(t, "far", r1F, 22, 500, 30),
		newRead(t, "z", 30, "10M", "ACGTACGTAC", fillQual(10, 30)),
		newMate(t, "o2", r1F, 40, 45, 30),
	)
	expect.EQ(t, got, []string{"o1", "far", "z"})
	expect.EQ(t, names(p.Flush()), []string{"o2"})
	expect.EQ(t, p.Stats().Orphans, 2)
	expect.EQ(t, p.Stats().Pairs, 0)
}

func TestPairerRequireStrand(t *testing.T) {
	opts := DefaultPairerOpts
	opts.RequireStrand = true
	p := NewPairer(opts)
	// Both mates on the forward strand.
	a := newMate(t, "ff", sam.Paired|sam.Read1, 0, 5, 30)
	b := newMate(t, "ff", sam.Paired|sam.Read2, 5, 0, 30)
	expect.EQ(t, addAll(t, p, a), []string{"ff"})
	expect.EQ(t, addAll(t, p, b), []string{"ff"})
	expect.EQ(t, a.Qual, fillQual(10, 30))
	expect.EQ(t, p.Stats().Pairs, 0)
}

func TestPairerErrors(t *testing.T) {
	bad := func() (*sam.Record, *sam.Record) {
		a := newMate(t, "bad", r1F, 0, 5, 30)
		b := newMate(t, "bad", r2R, 5, 0, 20)
		b.Qual = b.Qual[:9]
		return a, b
	}

	a, b := bad()
	p := NewPairer(PairerOpts{Strict: true})
	_, err := p.Add(a)
	assert.NoError(t, err)
	_, err = p.Add(b)
	expect.True(t, errors.Is(errors.Invalid, err), "%v", err)

	// The failed pair is not lost: it is released, unmodified and in order,
	// once the stream moves on.
	ready, err := p.Add(newRead(t, "z", 50, "10M", "ACGTACGTAC", fillQual(10, 30)))
	assert.NoError(t, err)
	expect.EQ(t, names(ready), []string{"bad", "bad", "z"})
	expect.EQ(t, a.Qual, fillQual(10, 30))
	expect.EQ(t, b.Qual, fillQual(9, 20))
	expect.EQ(t, len(p.Flush()), 0)

	a, b = bad()
	p = NewPairer(DefaultPairerOpts)
	expect.EQ(t, addAll(t, p, a, b), []string{"bad", "bad"})
	expect.EQ(t, p.Stats().Failed, 1)
	expect.EQ(t, a.Qual, fillQual(10, 30))
}
