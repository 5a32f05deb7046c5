// bio-hts reconciles overlapping mate quals in BAM files, prints and checks
// BAM aux fields, and classifies VCF genotypes.
//
//	bio-hts overlap [-strict] [-stats path] in.bam out.bam
//	bio-hts tags [-validate] in.bam
//	bio-hts genotypes [-out path] in.vcf[.gz]
//	bio-hts fisher n11 n12 n21 n22
package main

import "github.com/grailbio/htsutil/cmd/bio-hts/cmd"

func main() {
	cmd.Run()
}
