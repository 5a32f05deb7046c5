package cmd

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/htsutil/genotype"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const (
	vcfFormatCol   = 8
	vcfFirstSample = 9
	vcfMaxLineLen  = 64 << 20
)

type genotypeSummary struct {
	samples []string
	records int
	// counts[i][c] is the number of records where samples[i] has code c.
	counts [][4]int
}

// runGenotypes classifies the GT of every sample in the VCF at inPath and
// writes one code per sample and record to outPath. Input compressed with
// gzip or bzip2 is detected from the path.
func runGenotypes(ctx context.Context, inPath, outPath string) (sum genotypeSummary, err error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return sum, errors.Wrapf(err, "genotypes: open %s", inPath)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var inr io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(inr, in.Name()); u != nil {
		inr = u
	}

	out, err := file.Create(ctx, outPath)
	if err != nil {
		return sum, errors.Wrapf(err, "genotypes: create %s", outPath)
	}
	defer file.CloseAndReport(ctx, out, &err)
	var (
		outw io.Writer = out.Writer(ctx)
		gz   *gzip.Writer
	)
	if strings.HasSuffix(outPath, ".gz") {
		gz = gzip.NewWriter(outw)
		outw = gz
	}
	tw := tsv.NewWriter(outw)

	scanner := bufio.NewScanner(inr)
	scanner.Buffer(make([]byte, 0, 64<<10), vcfMaxLineLen)
	var (
		lineno  int
		gts     []int32
		codes   []genotype.Code
		cols    []string
		haveHdr bool
	)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if strings.HasPrefix(line, "##") {
			continue
		}
		cols = strings.Split(line, "\t")
		if strings.HasPrefix(line, "#") {
			if len(cols) < vcfFormatCol {
				return sum, errors.Errorf("genotypes: %s:%d: short header line", inPath, lineno)
			}
			if len(cols) > vcfFirstSample {
				sum.samples = append([]string(nil), cols[vcfFirstSample:]...)
			}
			sum.counts = make([][4]int, len(sum.samples))
			tw.WriteString("#CHROM")
			tw.WriteString("POS")
			tw.WriteString("ID")
			for _, s := range sum.samples {
				tw.WriteString(s)
			}
			if err := tw.EndLine(); err != nil {
				return sum, err
			}
			haveHdr = true
			continue
		}
		if !haveHdr {
			return sum, errors.Errorf("genotypes: %s:%d: record before #CHROM header", inPath, lineno)
		}
		if n := len(sum.samples); len(cols) < vcfFormatCol || (n > 0 && len(cols) != vcfFirstSample+n) {
			return sum, errors.Errorf("genotypes: %s:%d: got %d columns, want %d",
				inPath, lineno, len(cols), vcfFirstSample+n)
		}
		var (
			samples []string
			gtIndex = -1
		)
		if len(sum.samples) > 0 {
			samples = cols[vcfFirstSample:]
			for i, key := range strings.Split(cols[vcfFormatCol], ":") {
				if key == "GT" {
					gtIndex = i
					break
				}
			}
		}
		gts = gts[:0]
		for _, sample := range samples {
			gt := "."
			if gtIndex >= 0 {
				gt = genotype.SampleGT(sample, gtIndex)
			}
			if gts, err = genotype.ParseGT(gt, gts); err != nil {
				return sum, errors.Wrapf(err, "genotypes: %s:%d", inPath, lineno)
			}
		}
		codes = genotype.AppendClassify(codes[:0], gts)
		tw.WriteString(cols[0])
		tw.WriteString(cols[1])
		tw.WriteString(cols[2])
		for i, c := range codes {
			sum.counts[i][c]++
			tw.WriteUint32(uint32(c))
		}
		if err := tw.EndLine(); err != nil {
			return sum, err
		}
		sum.records++
	}
	if err := scanner.Err(); err != nil {
		return sum, errors.Wrapf(err, "genotypes: read %s", inPath)
	}
	if err := tw.Flush(); err != nil {
		return sum, errors.Wrapf(err, "genotypes: write %s", outPath)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return sum, errors.Wrapf(err, "genotypes: write %s", outPath)
		}
	}
	for i, s := range sum.samples {
		c := sum.counts[i]
		log.Printf("genotypes: %s: %s=%d %s=%d %s=%d %s=%d", s,
			genotype.HomRef, c[genotype.HomRef], genotype.Het, c[genotype.Het],
			genotype.HomAlt, c[genotype.HomAlt], genotype.Unknown, c[genotype.Unknown])
	}
	log.Printf("genotypes: %s: %d records, %d samples", inPath, sum.records, len(sum.samples))
	return sum, nil
}
