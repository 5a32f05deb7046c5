package bam

import (
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/htsutil/pileup"
)

// HasNoMappedMate returns true if record is unpaired or has an unmapped mate.
func HasNoMappedMate(record *sam.Record) bool {
	return (record.Flags&sam.Paired) == 0 || (record.Flags&sam.MateUnmapped) != 0
}

// IsPrimary returns true if record is neither secondary nor supplementary.
func IsPrimary(record *sam.Record) bool {
	return record.Flags&(sam.Secondary|sam.Supplementary) == 0
}

// MateMayOverlap returns true if record is a mapped primary read whose mate is
// mapped to the same reference at a position inside record's alignment span.
// Only then can the two mates cover a shared reference interval.
func MateMayOverlap(record *sam.Record) bool {
	if record.Flags&sam.Unmapped != 0 || HasNoMappedMate(record) || !IsPrimary(record) {
		return false
	}
	if record.Ref == nil || record.Ref != record.MateRef {
		return false
	}
	return record.MatePos >= record.Pos && record.MatePos < record.End()
}

// BaseAtPos returns the ASCII base that record aligns to reference position
// pos. found is false if pos lies outside the aligned part of record. If pos
// falls in a deletion or reference skip, it returns (0, true).
func BaseAtPos(record *sam.Record, pos int) (base byte, found bool) {
	c := NewCigarCursor(record.Cigar)
	i, err := c.SeekTo(pos - record.Pos)
	if err != nil {
		return 0, false
	}
	if c.RefOffset() != pos-record.Pos {
		return 0, true
	}
	return pileup.Seq8ToASCIITable[SeqBase(record.Seq, i)], true
}
