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

// Package overlap reconciles base qualities where the two mates of a read
// pair cover the same reference positions, so that downstream per-base
// analyses do not count the same fragment twice.
package overlap

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	gbam "github.com/grailbio/htsutil/encoding/bam"
	"github.com/grailbio/htsutil/pileup"
)

// Stats counts the reference positions reconciled by one or more Reconcile
// calls.
type Stats struct {
	// Overlap is the number of positions where both mates have an aligned
	// base.
	Overlap int
	// Concordant is the number of overlapping positions where the mates agree.
	Concordant int
	// Discordant is the number of overlapping positions where they disagree.
	Discordant int
	// Ambiguous is the number of overlapping positions where either base is
	// not A, C, G or T. These are also counted as concordant or discordant.
	Ambiguous int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Overlap += o.Overlap
	s.Concordant += o.Concordant
	s.Discordant += o.Discordant
	s.Ambiguous += o.Ambiguous
}

func (s Stats) String() string {
	return fmt.Sprintf("overlap:%d concordant:%d discordant:%d ambiguous:%d", s.Overlap, s.Concordant, s.Discordant, s.Ambiguous)
}

// checkRecord verifies the invariants Reconcile depends on.
func checkRecord(r *sam.Record) error {
	if len(r.Qual) != r.Seq.Length {
		return errors.E(errors.Invalid, fmt.Sprintf("overlap: read %s: qual length %d != seq length %d", r.Name, len(r.Qual), r.Seq.Length))
	}
	if err := gbam.ValidateCigar(r.Cigar); err != nil {
		return errors.E(err, fmt.Sprintf("overlap: read %s", r.Name))
	}
	if _, qlen := r.Cigar.Lengths(); len(r.Cigar) > 0 && qlen != r.Seq.Length {
		return errors.E(errors.Invalid, fmt.Sprintf("overlap: read %s: cigar query length %d != seq length %d", r.Name, qlen, r.Seq.Length))
	}
	return nil
}

// Reconcile walks the reference positions covered by both a and b, and at
// each position where both mates have an aligned base, adjusts their quals in
// place:
//
//  - equal bases: a's qual becomes min(MaxQual, qa+qb) and b's becomes 0.
//  - unequal bases: the lower qual becomes 0 and the other is multiplied by
//    MismatchDiscount, truncated. a wins ties.
//
// a and b must be mates aligned to the same reference; Reconcile does not
// check names, flags or reference IDs. Mates that share no aligned position
// are left untouched and produce zero Stats with a nil error.
//
// Both records are validated before either is modified: a qual/seq length
// mismatch yields an errors.Invalid error and an untraversable CIGAR
// operation yields errors.NotSupported.
func Reconcile(a, b *sam.Record) (Stats, error) {
	var stats Stats
	if err := checkRecord(a); err != nil {
		return stats, err
	}
	if err := checkRecord(b); err != nil {
		return stats, err
	}
	if a.Pos < 0 || b.Pos < 0 {
		return stats, nil
	}
	start := a.Pos
	if b.Pos > start {
		start = b.Pos
	}
	ca, cb := gbam.NewCigarCursor(a.Cigar), gbam.NewCigarCursor(b.Cigar)
	if _, err := ca.SeekTo(start - a.Pos); err != nil {
		return stats, ignoreEnd(err)
	}
	if _, err := cb.SeekTo(start - b.Pos); err != nil {
		return stats, ignoreEnd(err)
	}
	for {
		// Bring the lagging cursor up to the other one.
		for {
			refA, refB := a.Pos+ca.RefOffset(), b.Pos+cb.RefOffset()
			if refA == refB {
				break
			}
			var err error
			if refA < refB {
				_, err = ca.Advance()
			} else {
				_, err = cb.Advance()
			}
			if err != nil {
				return stats, ignoreEnd(err)
			}
		}
		if ca.OnBase() && cb.OnBase() {
			ia, ib := ca.SeqIndex(), cb.SeqIndex()
			baseA, baseB := gbam.SeqBase(a.Seq, ia), gbam.SeqBase(b.Seq, ib)
			stats.Overlap++
			if pileup.Seq8ToEnumTable[baseA] == pileup.BaseX || pileup.Seq8ToEnumTable[baseB] == pileup.BaseX {
				stats.Ambiguous++
			}
			if reconcileQuals(baseA, baseB, &a.Qual[ia], &b.Qual[ib]) {
				stats.Concordant++
			} else {
				stats.Discordant++
			}
		}
		if _, err := ca.Advance(); err != nil {
			return stats, ignoreEnd(err)
		}
		if _, err := cb.Advance(); err != nil {
			return stats, ignoreEnd(err)
		}
	}
}

// ignoreEnd converts the benign end-of-overlap conditions into nil.
func ignoreEnd(err error) error {
	if err == gbam.ErrNoOverlap || err == gbam.ErrCigarExhausted {
		return nil
	}
	return err
}
