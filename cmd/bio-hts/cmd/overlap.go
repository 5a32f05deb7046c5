package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/htsutil/pileup/overlap"
	"github.com/pkg/errors"
)

type overlapOpts struct {
	// strict aborts on the first mate pair that cannot be reconciled.
	strict bool
	// requireStrand only reconciles pairs with standard orientation.
	requireStrand bool
	// statsPath, if nonempty, receives a two-column TSV summary.
	statsPath string
}

type overlapResult struct {
	overlap.PairerStats
	// qualChecksum is the seahash of the quals of all output records, in
	// output order.
	qualChecksum uint64
}

// runOverlap copies the coordinate-sorted BAM at inPath to outPath,
// reconciling the quals of overlapping mates on the way.
func runOverlap(ctx context.Context, inPath, outPath string, opts overlapOpts) (res overlapResult, err error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return res, errors.Wrapf(err, "overlap: open %s", inPath)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return res, errors.Wrapf(err, "overlap: read %s", inPath)
	}
	defer func() {
		if e := r.Close(); e != nil && err == nil {
			err = e
		}
	}()

	out, err := file.Create(ctx, outPath)
	if err != nil {
		return res, errors.Wrapf(err, "overlap: create %s", outPath)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w, err := bam.NewWriter(out.Writer(ctx), r.Header(), 1)
	if err != nil {
		return res, errors.Wrapf(err, "overlap: write %s", outPath)
	}

	pairer := overlap.NewPairer(overlap.PairerOpts{Strict: opts.strict, RequireStrand: opts.requireStrand})
	h := seahash.New()
	write := func(recs []*sam.Record) error {
		for _, rec := range recs {
			h.Write(rec.Qual) // nolint: errcheck
			if err := w.Write(rec); err != nil {
				return errors.Wrapf(err, "overlap: write %s", outPath)
			}
		}
		return nil
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, errors.Wrapf(err, "overlap: read %s", inPath)
		}
		ready, err := pairer.Add(rec)
		if err != nil {
			return res, errors.Wrapf(err, "overlap: %s", inPath)
		}
		if err := write(ready); err != nil {
			return res, err
		}
	}
	if err := write(pairer.Flush()); err != nil {
		return res, err
	}
	if err := w.Close(); err != nil {
		return res, errors.Wrapf(err, "overlap: close %s", outPath)
	}

	res = overlapResult{PairerStats: pairer.Stats(), qualChecksum: h.Sum64()}
	log.Printf("overlap: %s: %d records, %d pairs, %v, %d orphans, %d failed, qual checksum %016x",
		inPath, res.Records, res.Pairs, res.Stats, res.Orphans, res.Failed, res.qualChecksum)
	if opts.statsPath != "" {
		err = writeOverlapStats(ctx, opts.statsPath, res)
	}
	return res, err
}

func writeOverlapStats(ctx context.Context, path string, res overlapResult) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "overlap: create %s", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	tw := tsv.NewWriter(out.Writer(ctx))
	rows := []struct {
		name  string
		value string
	}{
		{"records", strconv.Itoa(res.Records)},
		{"pairs", strconv.Itoa(res.Pairs)},
		{"overlap_bases", strconv.Itoa(res.Overlap)},
		{"concordant_bases", strconv.Itoa(res.Concordant)},
		{"discordant_bases", strconv.Itoa(res.Discordant)},
		{"ambiguous_bases", strconv.Itoa(res.Ambiguous)},
		{"orphans", strconv.Itoa(res.Orphans)},
		{"failed_pairs", strconv.Itoa(res.Failed)},
		{"qual_checksum", fmt.Sprintf("%016x", res.qualChecksum)},
	}
	for _, row := range rows {
		tw.WriteString(row.name)
		tw.WriteString(row.value)
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}
