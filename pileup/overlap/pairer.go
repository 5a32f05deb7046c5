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
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	gbam "github.com/grailbio/htsutil/encoding/bam"
	"github.com/grailbio/htsutil/pileup"
)

// PairerOpts controls a Pairer.
type PairerOpts struct {
	// Strict makes Add return Reconcile errors. Otherwise the offending pair is
	// logged, counted in PairerStats.Failed, and passed through unmodified.
	Strict bool
	// RequireStrand skips read pairs that do not have standard orientation
	// (pileup.GetStrand() == StrandNone).
	RequireStrand bool
}

// DefaultPairerOpts is the default Pairer configuration.
var DefaultPairerOpts = PairerOpts{}

// PairerStats summarizes the records seen by a Pairer.
type PairerStats struct {
	Stats
	// Records is the number of records added.
	Records int
	// Pairs is the number of mate pairs passed to Reconcile.
	Pairs int
	// Orphans is the number of records held for a mate that never arrived.
	Orphans int
	// Failed is the number of pairs rejected by Reconcile in non-strict mode.
	Failed int
}

// pending is a record that is waiting either for its mate or for an earlier
// record to be released.
type pending struct {
	samr *sam.Record
	// waiting is true while samr is the first mate of an unresolved pair.
	waiting bool
}

// Pairer reconciles overlapping mates in a coordinate-sorted record stream.
//
// When a read's mate starts inside the read's own alignment span, the read is
// held until the mate arrives; the pair is then reconciled and both are
// released. Records are always released in the order they were added. A
// Pairer is not safe for concurrent use.
type Pairer struct {
	opts  PairerOpts
	stats PairerStats
	// queue holds records not yet released, in input order. head is the index
	// of the first unreleased entry.
	queue []pending
	head  int
	// firstreads maps a read name to the queue index of its held first mate.
	firstreads map[string]int
}

// NewPairer creates an empty Pairer.
func NewPairer(opts PairerOpts) *Pairer {
	return &Pairer{opts: opts, firstreads: make(map[string]int)}
}

// Stats returns the counters accumulated so far.
func (p *Pairer) Stats() PairerStats { return p.stats }

// Add feeds the next record of the stream, and returns the records that are
// now ready for output. Records must arrive in coordinate order.
//
// In strict mode, Add returns the Reconcile error of a failed pair. Both mates
// are kept queued unmodified, so the caller may continue adding records and
// gets them back from a later Add or from Flush.
//
// Reads whose mate cannot overlap are released as soon as nothing before them
// is held. Otherwise:
// - if the mate has not been seen yet and starts inside this read's span, the
//   read is held;
// - if the mate is held, the two are reconciled and the mate is marked ready;
// - if Pos == MatePos and the mate hasn't shown up, the read is held since the
//   mate may still follow.
func (p *Pairer) Add(samr *sam.Record) ([]*sam.Record, error) {
	p.stats.Records++
	if idx, ok := p.firstreads[samr.Name]; ok && gbam.IsPrimary(samr) && isMate(p.queue[idx].samr, samr) {
		delete(p.firstreads, samr.Name)
		err := p.reconcile(p.queue[idx].samr, samr)
		p.queue[idx].waiting = false
		if err != nil {
			// Both mates stay queued, unmodified, for a later Add or Flush.
			p.queue = append(p.queue, pending{samr: samr})
			return nil, err
		}
	} else if gbam.MateMayOverlap(samr) && (!p.opts.RequireStrand || pileup.GetStrand(samr) != pileup.StrandNone) {
		p.firstreads[samr.Name] = len(p.queue)
		p.queue = append(p.queue, pending{samr: samr, waiting: true})
		return p.release(samr), nil
	}
	p.queue = append(p.queue, pending{samr: samr})
	return p.release(samr), nil
}

// isMate reports whether second is the mate that first is waiting for.
func isMate(first, second *sam.Record) bool {
	return first.MatePos == second.Pos && second.MatePos == first.Pos && second.Ref == first.Ref
}

func (p *Pairer) reconcile(first, second *sam.Record) error {
	p.stats.Pairs++
	stats, err := Reconcile(first, second)
	if err != nil {
		if p.opts.Strict {
			return err
		}
		p.stats.Failed++
		log.Error.Printf("overlap: skipping pair %s: %v", first.Name, err)
		return nil
	}
	p.stats.Add(stats)
	log.Debug.Printf("overlap: pair %s at %d/%d strand %c: %v", first.Name, first.Pos, second.Pos,
		pileup.StrandTypeToASCIITable[pileup.GetStrand(first)], stats)
	return nil
}

// release returns the longest prefix of the queue with no held record, and
// removes it from the queue. A held record whose mate position lies before
// cur can no longer be paired, and is released as an orphan.
func (p *Pairer) release(cur *sam.Record) []*sam.Record {
	var out []*sam.Record
	for p.head < len(p.queue) {
		e := &p.queue[p.head]
		if e.waiting {
			if cur.Ref == e.samr.Ref && cur.Pos <= e.samr.MatePos {
				break
			}
			p.stats.Orphans++
			delete(p.firstreads, e.samr.Name)
			log.Debug.Printf("overlap: mate of %s not found at %d", e.samr.Name, e.samr.MatePos)
		}
		out = append(out, e.samr)
		p.queue[p.head] = pending{}
		p.head++
	}
	if p.head == len(p.queue) {
		p.queue = p.queue[:0]
		p.head = 0
	}
	return out
}

// Flush releases every remaining record, including first mates whose mate
// never arrived, and resets the Pairer for a new stream.
func (p *Pairer) Flush() []*sam.Record {
	var out []*sam.Record
	for _, e := range p.queue[p.head:] {
		if e.waiting {
			p.stats.Orphans++
		}
		out = append(out, e.samr)
	}
	p.queue = p.queue[:0]
	p.head = 0
	p.firstreads = make(map[string]int)
	return out
}
