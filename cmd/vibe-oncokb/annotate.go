package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-oncokb/internal/alteration"
	"github.com/inodb/vibe-oncokb/internal/cache"
	"github.com/inodb/vibe-oncokb/internal/genomenexus"
	"github.com/inodb/vibe-oncokb/internal/maf"
	"github.com/inodb/vibe-oncokb/internal/output"
	"github.com/inodb/vibe-oncokb/internal/relevance"
	"github.com/inodb/vibe-oncokb/internal/vcf"
)

type annotateOptions struct {
	gene       string
	separator  string
	workers    int
	input      string
	outputFile string
	mafFile    string
	vcfFile    string
	catalog    bool
	hgvsg      bool
}

func newAnnotateCmd() *cobra.Command {
	var opts annotateOptions

	cmd := &cobra.Command{
		Use:   "annotate [alteration...]",
		Short: "Parse alteration notation and annotate it against the catalog",
		Long: `Parse protein alteration strings and write one tab-delimited record per
alteration. Input comes from the arguments, or one entry per line from
--input (use '-' for stdin). A line may carry its gene in a first
tab-separated column; otherwise --gene applies. With --maf, calls are read
from the Hugo_Symbol and HGVSp_Short columns of a MAF file.

With --catalog, each alteration is related to the curated catalog and its
oncogenicity is derived. With --hgvsg, inputs are genomic variants resolved
to protein alterations through Genome Nexus. --vcf reads such variants from
a VCF file and implies --hgvsg.`,
		Example: `  vibe-oncokb annotate --gene BRAF V600E "V600 {excluding V600E}"
  vibe-oncokb annotate --gene EGFR --separator / "L858R/T790M"
  vibe-oncokb annotate --catalog --input alterations.txt -o annotated.tsv
  cut -f1,2 calls.tsv | vibe-oncokb annotate --catalog --input -
  vibe-oncokb annotate --catalog --maf data_mutations.maf.gz
  vibe-oncokb annotate --catalog --hgvsg 7:g.140453136A>T
  vibe-oncokb annotate --catalog --vcf tumor.vcf.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.gene, "gene", "g", "", "Hugo symbol applied to inputs without a gene column")
	flags.StringVar(&opts.separator, "separator", ",", "Separator between alterations within one input")
	flags.IntVar(&opts.workers, "workers", 0, "Parser workers (default: number of CPUs)")
	flags.StringVarP(&opts.input, "input", "i", "", "Input file with one entry per line ('-' for stdin)")
	flags.StringVar(&opts.mafFile, "maf", "", "MAF file (optionally gzipped) to read calls from")
	flags.StringVar(&opts.vcfFile, "vcf", "", "VCF file (optionally gzipped) of variants resolved through Genome Nexus")
	flags.StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	flags.BoolVar(&opts.catalog, "catalog", false, "Relate alterations to the catalog and derive oncogenicity")
	flags.BoolVar(&opts.hgvsg, "hgvsg", false, "Inputs are HGVSg variants resolved through Genome Nexus")

	return cmd
}

// annotateInput is one input entry.
type annotateInput struct {
	gene string
	text string
}

func runAnnotate(cmd *cobra.Command, args []string, opts annotateOptions) error {
	ctx := cmd.Context()
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	genome, err := referenceGenome()
	if err != nil {
		return err
	}

	if opts.vcfFile != "" {
		opts.hgvsg = true
	}
	inputs, err := readInputs(cmd.InOrStdin(), args, opts)
	if err != nil {
		return err
	}
	if opts.vcfFile != "" {
		variants, err := readVCF(opts.vcfFile, logger)
		if err != nil {
			return err
		}
		inputs = append(inputs, variants...)
	}
	if opts.mafFile != "" {
		calls, err := readMAF(opts.mafFile, genome, opts.hgvsg, logger)
		if err != nil {
			return err
		}
		inputs = append(inputs, calls...)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no alterations given (pass them as arguments, with --input, --maf or --vcf)")
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	a := &annotator{genome: genome, logger: logger}
	if opts.catalog {
		env, err := openCatalog(ctx, logger, cache.Options{})
		if err != nil {
			return err
		}
		defer env.Close()
		a.env = env
	}

	w := output.NewTabWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}

	if opts.hgvsg {
		err = a.annotateHGVSg(ctx, w, inputs, genomenexus.New(genomenexus.Options{
			GRCh37URL: viper.GetString("genomenexus.grch37_url"),
			GRCh38URL: viper.GetString("genomenexus.grch38_url"),
			Timeout:   viper.GetDuration("genomenexus.timeout"),
			Logger:    logger,
		}))
	} else {
		err = a.annotateNotations(ctx, w, inputs, opts)
	}
	if err != nil {
		return err
	}
	return w.Flush()
}

// readInputs collects entries from the arguments and the --input source.
func readInputs(stdin io.Reader, args []string, opts annotateOptions) ([]annotateInput, error) {
	var inputs []annotateInput
	for _, arg := range args {
		inputs = append(inputs, annotateInput{gene: opts.gene, text: arg})
	}
	if opts.input == "" {
		return inputs, nil
	}

	r := stdin
	if opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		in := annotateInput{gene: opts.gene, text: line}
		if gene, text, ok := strings.Cut(line, "\t"); ok {
			in = annotateInput{gene: strings.TrimSpace(gene), text: text}
		}
		inputs = append(inputs, in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return inputs, nil
}

// readMAF collects the calls of a MAF file: the protein change of each
// line, or its HGVSg when hgvsg is set. Lines without one are skipped.
func readMAF(path string, genome alteration.ReferenceGenome, hgvsg bool, logger *zap.Logger) ([]annotateInput, error) {
	r, err := maf.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var (
		inputs     []annotateInput
		skipped    int
		mismatched int
	)
	for {
		rec, err := r.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		if g, ok := rec.Genome(); ok && g != genome {
			mismatched++
		}
		text := rec.ProteinChange()
		if hgvsg {
			text = rec.HGVSg()
		}
		if text == "" {
			skipped++
			continue
		}
		inputs = append(inputs, annotateInput{gene: rec.HugoSymbol, text: text})
	}

	if skipped > 0 {
		logger.Warn("skipped maf lines without a usable call", zap.String("path", path), zap.Int("lines", skipped))
	}
	if mismatched > 0 {
		logger.Warn("maf lines built on another reference genome",
			zap.String("path", path), zap.Stringer("reference_genome", genome), zap.Int("lines", mismatched))
	}
	return inputs, nil
}

// readVCF collects the HGVSg of every allele in a VCF file. Symbolic
// alleles are skipped.
func readVCF(path string, logger *zap.Logger) ([]annotateInput, error) {
	r, err := vcf.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var (
		inputs  []annotateInput
		skipped int
	)
	for {
		v, err := r.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			break
		}
		hgvsg := v.HGVSg()
		if hgvsg == "" {
			skipped++
			continue
		}
		inputs = append(inputs, annotateInput{text: hgvsg})
	}
	if skipped > 0 {
		logger.Warn("skipped vcf alleles without an HGVSg form", zap.String("path", path), zap.Int("alleles", skipped))
	}
	return inputs, nil
}

// annotator turns parsed alterations into output records.
type annotator struct {
	genome alteration.ReferenceGenome
	env    *catalogEnv
	logger *zap.Logger
}

// gene resolves a symbol against the catalog, falling back to a bare gene.
func (a *annotator) gene(symbol string) *alteration.Gene {
	if symbol == "" {
		return nil
	}
	if a.env != nil {
		if g := a.env.cache.GeneBySymbol(symbol); g != nil {
			return g
		}
	}
	return &alteration.Gene{HugoSymbol: symbol}
}

// GeneBySymbol implements genomenexus.GeneResolver.
func (a *annotator) GeneBySymbol(symbol string) *alteration.Gene {
	return a.gene(symbol)
}

func (a *annotator) annotateNotations(ctx context.Context, w *output.TabWriter, inputs []annotateInput, opts annotateOptions) error {
	items := make(chan alteration.WorkItem, 2*max(opts.workers, 1))
	go func() {
		defer close(items)
		for i, in := range inputs {
			select {
			case items <- alteration.WorkItem{Seq: i, Gene: a.gene(in.gene), Text: in.text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := alteration.ParallelParse(items, opts.separator, opts.workers)
	return alteration.OrderedCollect(results, func(r alteration.WorkResult) error {
		for _, alt := range r.Alterations {
			rec, err := a.record(ctx, r.Text, alt)
			if err != nil {
				return err
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *annotator) annotateHGVSg(ctx context.Context, w *output.TabWriter, inputs []annotateInput, client *genomenexus.Client) error {
	for _, in := range inputs {
		alt, err := client.Alteration(ctx, genomenexus.QueryHGVSg, strings.TrimSpace(in.text), a.genome, a)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", in.text, err)
		}
		if alt == nil {
			a.logger.Warn("no protein annotation", zap.String("hgvsg", in.text))
			continue
		}
		rec, err := a.record(ctx, in.text, alt)
		if err != nil {
			return err
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// record builds the output record of alt, consulting the catalog when one
// is open and alt names a curated gene.
func (a *annotator) record(ctx context.Context, input string, alt *alteration.Alteration) (*output.Record, error) {
	rec := &output.Record{Input: input, Alteration: alt}
	if a.env == nil || alt.Gene == nil || a.env.cache.GeneByID(alt.Gene.EntrezGeneID) == nil {
		return rec, nil
	}
	alt.Genomes = alteration.NewGenomeSet(a.genome)

	catalog, err := a.env.cache.Alterations(ctx, alt.Gene.EntrezGeneID, a.genome)
	if err != nil {
		return nil, err
	}
	rec.Relevant = relevance.RemoveAlternativeAllele(alt, a.genome, relevance.RelevantAlterations(alt, a.genome, catalog))

	subject := alt
	if c := relevance.FindAlteration(alt.Gene, a.genome, alt.Notation, catalog); c != nil {
		subject = c
	}
	oncogenic, determined, err := a.env.deriver.IsOncogenic(ctx, subject)
	if err != nil {
		return nil, err
	}
	if determined {
		rec.Oncogenic = "no"
		if oncogenic {
			rec.Oncogenic = "yes"
		}
	}
	highest, err := a.env.deriver.Highest(ctx, rec.Relevant)
	if err != nil {
		return nil, err
	}
	rec.Highest = string(highest)
	return rec, nil
}
