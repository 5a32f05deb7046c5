package cmd

import (
	"fmt"
	"log"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

func newCmdOverlap() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "overlap",
		Short: `Reconcile base qualities where the mates of a pair overlap.
The input must be coordinate sorted. Records are written in input order.`,
		ArgsName: "srcpath destpath",
	}
	opts := overlapOpts{}
	cmd.Flags.BoolVar(&opts.strict, "strict", false, "Fail on the first mate pair that cannot be reconciled, instead of skipping it")
	cmd.Flags.BoolVar(&opts.requireStrand, "require-strand", false, "Only reconcile pairs whose mates are on opposite strands")
	cmd.Flags.StringVar(&opts.statsPath, "stats", "", "If nonempty, write a TSV of run statistics to this path")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("overlap takes srcpath destpath, but got %v", argv)
		}
		_, err := runOverlap(vcontext.Background(), argv[0], argv[1], opts)
		return err
	})
	return cmd
}

func newCmdTags() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "tags",
		Short: `Print the aux fields of each record in a BAM file.
Fields are decoded from the aux block as rebuilt from the record's parsed
fields, so -validate checks that rebuilt block. Blocks the BAM reader itself
rejects fail the read instead.`,
		ArgsName: "path",
	}
	validate := cmd.Flags.Bool("validate", false, "Print only records whose rebuilt aux block cannot be decoded")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("tags takes one pathname argument, but got %v", argv)
		}
		_, err := runTags(vcontext.Background(), argv[0], *validate, env.Stdout)
		return err
	})
	return cmd
}

func newCmdGenotypes() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "genotypes",
		Short: `Classify the GT of each sample of a VCF file.
Codes are 0 (hom-ref), 1 (het), 2 (unknown) and 3 (hom-alt).`,
		ArgsName: "path",
	}
	out := cmd.Flags.String("out", "genotypes.tsv", "Output TSV path. A .gz suffix selects gzip output")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("genotypes takes one pathname argument, but got %v", argv)
		}
		_, err := runGenotypes(vcontext.Background(), argv[0], *out)
		return err
	})
	return cmd
}

func newCmdFisher() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "fisher",
		Short:    "Run Fisher's exact test on a 2x2 contingency table",
		ArgsName: "n11 n12 n21 n22",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		_, err := runFisher(argv, env.Stdout)
		return err
	})
	return cmd
}

func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-hts",
			Short:    "Tools for inspecting and adjusting aligned reads and genotypes",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdOverlap(),
				newCmdTags(),
				newCmdGenotypes(),
				newCmdFisher(),
			},
		})
}
