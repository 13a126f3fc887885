package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-oncokb/internal/cache"
	"github.com/inodb/vibe-oncokb/internal/genomenexus"
	"github.com/inodb/vibe-oncokb/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve relevance queries and the cache control API",
		Long: `Warm the catalog cache and serve it over HTTP:

  GET  /relevant?hugoSymbol=BRAF&alteration=V600E   relevant alterations and oncogenicity
  GET  /relevant?hgvsg=7:g.140453136A>T             same, resolved through Genome Nexus
  POST /cache?cmd=updateGene&entrezGeneIds=673      invalidate genes
  POST /cache?cmd=reset                             clear and reload everything
  GET  /cache?cmd=getStatus                         enabled or disabled
  GET  /metrics, /health

Cache commands received over HTTP are applied locally; add propagate=true to
forward them to the configured siblings.`,
		Example: `  vibe-oncokb serve --addr :8080
  vibe-oncokb serve --sibling http://oncokb-2:8080/cache --sibling http://oncokb-3:8080/cache`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", server.DefaultAddr, "Listen address")
	flags.StringSlice("sibling", nil, "Sibling cache endpoint notified of invalidations (repeatable)")
	flags.Bool("no-cache", false, "Start with the cache disabled")
	viper.BindPFlag("server.addr", flags.Lookup("addr"))
	viper.BindPFlag("cache.siblings", flags.Lookup("sibling"))

	return cmd
}

func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	noCache, _ := cmd.Flags().GetBool("no-cache")
	env, err := openCatalog(ctx, logger, cache.Options{
		Siblings:      viper.GetStringSlice("cache.siblings"),
		NotifyTimeout: viper.GetDuration("cache.notify_timeout"),
		Disabled:      noCache || !viper.GetBool("cache.enabled"),
		Metrics:       cache.NewMetrics("oncokb"),
	})
	if err != nil {
		return err
	}
	defer env.Close()

	srv, err := server.New(server.Config{
		Addr:            viper.GetString("server.addr"),
		ReferenceGenome: viper.GetString("reference_genome"),
		ReadTimeout:     viper.GetDuration("server.read_timeout"),
		WriteTimeout:    viper.GetDuration("server.write_timeout"),
		ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
	}, env.cache, env.deriver)
	if err != nil {
		return err
	}
	srv.SetLogger(logger)

	if viper.GetBool("genomenexus.enabled") {
		srv.SetAnnotator(genomenexus.New(genomenexus.Options{
			GRCh37URL: viper.GetString("genomenexus.grch37_url"),
			GRCh38URL: viper.GetString("genomenexus.grch38_url"),
			Timeout:   viper.GetDuration("genomenexus.timeout"),
			Logger:    logger,
		}))
	}

	logger.Info("serving catalog",
		zap.String("status", env.cache.Status()),
		zap.Strings("siblings", viper.GetStringSlice("cache.siblings")))
	return srv.ListenAndServe(ctx)
}
