package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-oncokb/internal/datasource/hotspots"
	"github.com/inodb/vibe-oncokb/internal/datasource/oncokb"
	"github.com/inodb/vibe-oncokb/internal/duckdb"
)

type loadOptions struct {
	genes       string
	alterations string
	evidences   string
	drugs       string
	tumorTypes  string
	hotspots    string
	force       bool
}

func newLoadCmd() *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Populate the catalog database from TSV files",
		Long: `Load curated data into the catalog DuckDB file. Each source is only
re-imported when the file changed since the last load (use --force to
override). Reloading genes reloads alterations and evidences, which resolve
against them.

File formats (tab-separated with a header line):
  genes        OncoKB cancer gene list (Hugo Symbol, Entrez Gene ID, Gene Type)
  alterations  id, entrez_gene_id, alteration, name, type, genomes
  evidences    id, uuid, entrez_gene_id, evidence_type, known_effect, alterations
  drugs        id, name
  tumor types  code, name, main_type, level
  hotspots     Hugo_Symbol, Residue, Variant_Amino_Acid, Type`,
		Example: `  vibe-oncokb load --genes cancerGeneList.tsv --alterations alterations.tsv \
      --evidences evidences.tsv --hotspots hotspots.tsv
  vibe-oncokb load --db /data/catalog.duckdb --drugs drugs.tsv --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			path, err := dbPath()
			if err != nil {
				return err
			}
			store, err := duckdb.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Loading catalog into %s\n", path)
			return runLoad(cmd.Context(), cmd.OutOrStdout(), store, opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.genes, "genes", "", "Cancer gene list TSV")
	flags.StringVar(&opts.alterations, "alterations", "", "Curated alterations TSV")
	flags.StringVar(&opts.evidences, "evidences", "", "Curated evidences TSV")
	flags.StringVar(&opts.drugs, "drugs", "", "Drugs TSV")
	flags.StringVar(&opts.tumorTypes, "tumor-types", "", "Tumor type ontology TSV")
	flags.StringVar(&opts.hotspots, "hotspots", "", "Cancer hotspots TSV")
	flags.BoolVar(&opts.force, "force", false, "Re-import sources even if unchanged")

	return cmd
}

// loadStep imports one source kind. Steps listing deps are re-imported
// whenever one of them was.
type loadStep struct {
	kind string
	path string
	deps []string
	load func(ctx context.Context, path string) (int64, error)
}

func runLoad(ctx context.Context, w io.Writer, store *duckdb.Store, opts loadOptions, logger *zap.Logger) error {
	hs, err := hotspots.New(store.DB())
	if err != nil {
		return err
	}

	steps := []loadStep{
		{kind: "genes", path: opts.genes, load: func(ctx context.Context, path string) (int64, error) {
			list, err := oncokb.LoadCancerGeneList(path)
			if err != nil {
				return 0, err
			}
			genes := list.Genes()
			if err := store.WriteGenes(ctx, genes); err != nil {
				return 0, err
			}
			return int64(len(genes)), nil
		}},
		{kind: "alterations", path: opts.alterations, deps: []string{"genes"}, load: func(ctx context.Context, path string) (int64, error) {
			n, err := store.ImportAlterations(ctx, path)
			return int64(n), err
		}},
		{kind: "evidences", path: opts.evidences, deps: []string{"genes", "alterations"}, load: store.ImportEvidences},
		{kind: "drugs", path: opts.drugs, load: store.ImportDrugs},
		{kind: "tumor_types", path: opts.tumorTypes, load: store.ImportTumorTypes},
		{kind: "hotspots", path: opts.hotspots, load: func(_ context.Context, path string) (int64, error) {
			if err := hs.Load(path); err != nil {
				return 0, err
			}
			return hs.Count()
		}},
	}

	var reloaded []string
	for _, step := range steps {
		if step.path == "" {
			continue
		}
		fp, err := duckdb.StatFile(step.path)
		if err != nil {
			return fmt.Errorf("%s source: %w", step.kind, err)
		}

		if !opts.force && !slices.ContainsFunc(step.deps, func(d string) bool { return slices.Contains(reloaded, d) }) {
			current, err := store.SourceCurrent(ctx, step.kind, fp)
			if err != nil {
				return err
			}
			if current {
				fmt.Fprintf(w, "  %s: %s unchanged, skipping\n", step.kind, step.path)
				continue
			}
		}

		start := time.Now()
		n, err := step.load(ctx, step.path)
		if err != nil {
			return fmt.Errorf("load %s: %w", step.kind, err)
		}
		if err := store.RecordSource(ctx, step.kind, fp); err != nil {
			return err
		}
		reloaded = append(reloaded, step.kind)
		logger.Info("source loaded",
			zap.String("kind", step.kind),
			zap.String("path", step.path),
			zap.Int64("rows", n),
			zap.Duration("elapsed", time.Since(start)))
		fmt.Fprintf(w, "  %s: %d rows from %s\n", step.kind, n, step.path)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	nHotspots, err := hs.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Catalog: %d genes, %d alterations, %d evidences, %d drugs, %d tumor types, %d hotspots\n",
		counts["genes"], counts["alterations"], counts["evidences"], counts["drugs"], counts["tumor_types"], nHotspots)
	return nil
}
