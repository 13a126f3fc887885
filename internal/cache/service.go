// Package cache holds the gene-scoped catalog cache: per-gene alterations,
// evidences and VUS, the gene directory, drugs, the tumor-type ontology and
// numeric aggregates. Invalidation events are applied locally through a hub
// and mirrored to sibling instances.
package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// Catalog is the backing store the cache reads from.
type Catalog interface {
	Genes(ctx context.Context) ([]*alteration.Gene, error)
	Alterations(ctx context.Context, entrezGeneID int) ([]*alteration.Alteration, error)
	AllAlterations(ctx context.Context) ([]*alteration.Alteration, error)
	Evidences(ctx context.Context, entrezGeneID int) ([]*alteration.Evidence, error)
	AllEvidences(ctx context.Context) ([]*alteration.Evidence, error)
	Drugs(ctx context.Context) ([]*alteration.Drug, error)
	CancerTypes(ctx context.Context) ([]*alteration.TumorType, error)
	Subtypes(ctx context.Context) ([]*alteration.TumorType, error)
}

// Status values reported by Service.Status.
const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
)

// Options configures a Service.
type Options struct {
	// Siblings are the base URLs of the instances notified of invalidations.
	Siblings      []string      `validate:"dive,url"`
	NotifyTimeout time.Duration `validate:"gte=0"`
	// Disabled starts the service with the cache switched off.
	Disabled bool
	Logger   *zap.Logger
	Metrics  *Metrics
}

var validate = validator.New()

// Validate checks the options.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(e.Field()), e.Tag()))
			}
			return fmt.Errorf("invalid cache options: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// geneDirectory indexes the catalog genes by id and by symbol.
type geneDirectory struct {
	list     []*alteration.Gene
	byID     map[int]*alteration.Gene
	bySymbol map[string]*alteration.Gene
}

func newGeneDirectory(genes []*alteration.Gene) *geneDirectory {
	d := &geneDirectory{
		list:     genes,
		byID:     make(map[int]*alteration.Gene, len(genes)),
		bySymbol: make(map[string]*alteration.Gene, len(genes)),
	}
	for _, g := range genes {
		d.byID[g.EntrezGeneID] = g
		d.bySymbol[strings.ToUpper(g.HugoSymbol)] = g
	}
	return d
}

// Service is the process-wide catalog cache. Reads are concurrent;
// invalidations are serialized through the hub.
type Service struct {
	catalog  Catalog
	hub      *Hub
	notifier *Notifier
	logger   *zap.Logger
	metrics  *Metrics
	enabled  atomic.Bool

	alterations *geneStore[*alteration.Alteration]
	evidences   *geneStore[*alteration.Evidence]
	vus         *geneStore[*alteration.Alteration]

	mu          sync.RWMutex
	directory   *geneDirectory
	drugs       []*alteration.Drug
	cancerTypes []*alteration.TumorType
	subtypes    []*alteration.TumorType
	numbers     map[string]any
	mapped      map[string][]*alteration.TumorType
}

// New creates a cache service over catalog. Call Start to warm it up and
// Close to release it.
func New(catalog Catalog, opts Options) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics("oncokb")
	}

	s := &Service{
		catalog:   catalog,
		hub:       &Hub{},
		notifier:  NewNotifier(opts.Siblings, opts.NotifyTimeout, logger, metrics),
		logger:    logger,
		metrics:   metrics,
		directory: newGeneDirectory(nil),
		numbers:   make(map[string]any),
		mapped:    make(map[string][]*alteration.TumorType),
	}
	s.enabled.Store(!opts.Disabled)

	s.alterations = newGeneStore("alterations", metrics, s.loadAlterations)
	s.evidences = newGeneStore("evidences", metrics, s.loadEvidences)
	s.vus = newGeneStore("vus", metrics, s.loadVUS)

	// Genes first: the other kinds resolve against the directory.
	s.hub.Subscribe("genes", SubscriberFunc(s.applyGenes))
	s.hub.Subscribe("alterations", s.alterations)
	s.hub.Subscribe("evidences", SubscriberFunc(s.applyEvidences))
	s.hub.Subscribe("numbers", SubscriberFunc(s.applyNumbers))
	s.hub.Subscribe("drugs", SubscriberFunc(s.applyDrugs))
	s.hub.Subscribe("tumor_types", SubscriberFunc(s.applyTumorTypes))
	return s, nil
}

// SetLogger sets the logger for the service and its notifier.
func (s *Service) SetLogger(l *zap.Logger) {
	s.logger = l
	s.notifier.logger = l
}

// Metrics returns the service metrics.
func (s *Service) Metrics() *Metrics { return s.metrics }

// Hub returns the event hub. Additional subscribers may be registered
// before the service is used.
func (s *Service) Hub() *Hub { return s.hub }

// Start warms the cache. With the cache disabled only the tumor-type
// ontology is loaded.
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	if err := s.refreshGenes(ctx); err != nil {
		return err
	}
	if s.Enabled() {
		if err := s.warm(ctx); err != nil {
			return fmt.Errorf("warm cache: %w", err)
		}
	} else {
		s.logger.Info("cache disabled, skipping warm-up")
	}
	if err := s.refreshTumorTypes(ctx); err != nil {
		return fmt.Errorf("load tumor types: %w", err)
	}
	s.logger.Info("cache started",
		zap.String("status", s.Status()),
		zap.Int("genes", len(s.directorySnapshot().list)),
		zap.Int("siblings", len(s.notifier.Siblings())),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Service) warm(ctx context.Context) error {
	var (
		alts  []*alteration.Alteration
		drugs []*alteration.Drug
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		alts, err = s.catalog.AllAlterations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		drugs, err = s.catalog.Drugs(gctx)
		return err
	})
	g.Go(func() error {
		return s.cacheAllEvidences(gctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	byGene := make(map[int][]*alteration.Alteration)
	for _, a := range alts {
		if a.Gene != nil {
			byGene[a.Gene.EntrezGeneID] = append(byGene[a.Gene.EntrezGeneID], a)
		}
	}
	s.alterations.replace(byGene)

	s.mu.Lock()
	s.drugs = drugs
	s.mu.Unlock()

	s.logger.Info("cache warmed",
		zap.Int("alterations", len(alts)),
		zap.Int("drugs", len(drugs)))
	return nil
}

// cacheAllEvidences loads every evidence and groups it, with the derived
// VUS sets, by the genes of the directory.
func (s *Service) cacheAllEvidences(ctx context.Context) error {
	evs, err := s.catalog.AllEvidences(ctx)
	if err != nil {
		return err
	}
	dir := s.directorySnapshot()
	byGene := make(map[int][]*alteration.Evidence, len(dir.list))
	for _, g := range dir.list {
		byGene[g.EntrezGeneID] = nil
	}
	for _, e := range evs {
		if e.Gene == nil {
			continue
		}
		if _, ok := byGene[e.Gene.EntrezGeneID]; ok {
			byGene[e.Gene.EntrezGeneID] = append(byGene[e.Gene.EntrezGeneID], e)
		}
	}
	vus := make(map[int][]*alteration.Alteration, len(byGene))
	for id, list := range byGene {
		vus[id] = vusFromEvidences(list)
	}
	s.evidences.replace(byGene)
	s.vus.replace(vus)
	return nil
}

// Close stops sibling notification.
func (s *Service) Close() error {
	s.notifier.Close()
	return nil
}

// Enable switches the cache on.
func (s *Service) Enable() { s.enabled.Store(true) }

// Disable switches the cache off. Only the tumor-type accessors bypass the
// cache while disabled.
func (s *Service) Disable() { s.enabled.Store(false) }

// Enabled reports whether the cache is switched on.
func (s *Service) Enabled() bool { return s.enabled.Load() }

// Status returns StatusEnabled or StatusDisabled.
func (s *Service) Status() string {
	if s.Enabled() {
		return StatusEnabled
	}
	return StatusDisabled
}

// UpdateGenes invalidates the given genes and, if propagate is set, asks the
// siblings to do the same once the local update is applied.
func (s *Service) UpdateGenes(ctx context.Context, entrezGeneIDs []int, propagate bool) error {
	if len(entrezGeneIDs) == 0 {
		return nil
	}
	s.logger.Info("updating genes",
		zap.Ints("entrez_gene_ids", entrezGeneIDs),
		zap.Bool("propagate", propagate))

	var errs []error
	for _, id := range entrezGeneIDs {
		if err := s.publish(ctx, UpdateGene(id)); err != nil {
			errs = append(errs, err)
		}
	}
	if propagate {
		s.notifier.NotifyUpdate(entrezGeneIDs)
	}
	return errors.Join(errs...)
}

// Reset clears every cache, repopulates genes, evidences and tumor types and,
// if propagate is set, asks the siblings to reset as well.
func (s *Service) Reset(ctx context.Context, propagate bool) error {
	s.logger.Info("resetting cache", zap.Bool("propagate", propagate))
	err := s.publish(ctx, Reset())
	if propagate {
		s.notifier.NotifyReset()
	}
	return err
}

func (s *Service) publish(ctx context.Context, ev Event) error {
	s.metrics.Events.WithLabelValues(ev.Kind.String()).Inc()
	if err := s.hub.Publish(ctx, ev); err != nil {
		s.logger.Error("cache event failed", zap.Stringer("event", ev), zap.Error(err))
		return fmt.Errorf("apply %s: %w", ev, err)
	}
	return nil
}

// WaitNotifications blocks until in-flight sibling notifications finish.
func (s *Service) WaitNotifications() { s.notifier.Wait() }

func (s *Service) applyGenes(ctx context.Context, _ Event) error {
	return s.refreshGenes(ctx)
}

// applyEvidences invalidates evidences together with the VUS sets derived
// from them.
func (s *Service) applyEvidences(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventUpdateGene:
		s.evidences.evict(ev.GeneID)
		s.vus.evict(ev.GeneID)
	case EventReset:
		s.evidences.clear()
		s.vus.clear()
		return s.cacheAllEvidences(ctx)
	}
	return nil
}

func (s *Service) applyNumbers(context.Context, Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.numbers)
	return nil
}

// applyDrugs drops the drug list on every event; Drugs reloads it.
func (s *Service) applyDrugs(context.Context, Event) error {
	s.mu.Lock()
	s.drugs = nil
	s.mu.Unlock()
	return nil
}

func (s *Service) applyTumorTypes(ctx context.Context, ev Event) error {
	if ev.Kind == EventReset {
		return s.refreshTumorTypes(ctx)
	}
	return nil
}

func (s *Service) refreshGenes(ctx context.Context) error {
	genes, err := s.catalog.Genes(ctx)
	if err != nil {
		return fmt.Errorf("load genes: %w", err)
	}
	dir := newGeneDirectory(genes)
	s.mu.Lock()
	s.directory = dir
	s.mu.Unlock()
	return nil
}

func (s *Service) refreshTumorTypes(ctx context.Context) error {
	cancerTypes, err := s.catalog.CancerTypes(ctx)
	if err != nil {
		return err
	}
	subtypes, err := s.catalog.Subtypes(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cancerTypes, s.subtypes = cancerTypes, subtypes
	s.mu.Unlock()
	return nil
}

func (s *Service) directorySnapshot() *geneDirectory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directory
}

func (s *Service) loadAlterations(ctx context.Context, id int) ([]*alteration.Alteration, error) {
	alts, err := s.catalog.Alterations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load alterations of gene %d: %w", id, err)
	}
	return alts, nil
}

func (s *Service) loadEvidences(ctx context.Context, id int) ([]*alteration.Evidence, error) {
	evs, err := s.catalog.Evidences(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load evidences of gene %d: %w", id, err)
	}
	return evs, nil
}

func (s *Service) loadVUS(ctx context.Context, id int) ([]*alteration.Alteration, error) {
	evs, err := s.evidences.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return vusFromEvidences(evs), nil
}

// vusFromEvidences collects the alterations of VUS evidence.
func vusFromEvidences(evs []*alteration.Evidence) []*alteration.Alteration {
	var out []*alteration.Alteration
	for _, e := range evs {
		if e.Type != alteration.EvidenceVUS {
			continue
		}
		for _, a := range e.Alterations {
			if !alteration.Contains(out, a) {
				out = append(out, a)
			}
		}
	}
	return out
}

// Genes returns the catalog genes, loading the directory if it is empty.
func (s *Service) Genes(ctx context.Context) ([]*alteration.Gene, error) {
	if dir := s.directorySnapshot(); len(dir.list) > 0 {
		return dir.list, nil
	}
	if err := s.refreshGenes(ctx); err != nil {
		return nil, err
	}
	return s.directorySnapshot().list, nil
}

// GeneByID returns the gene with the given Entrez id, or nil.
func (s *Service) GeneByID(entrezGeneID int) *alteration.Gene {
	return s.directorySnapshot().byID[entrezGeneID]
}

// GeneBySymbol returns the gene with the given Hugo symbol, ignoring case, or nil.
func (s *Service) GeneBySymbol(hugoSymbol string) *alteration.Gene {
	return s.directorySnapshot().bySymbol[strings.ToUpper(strings.TrimSpace(hugoSymbol))]
}

// Alterations returns the catalog alterations of a gene available on genome,
// or on any build when genome is zero. Unknown genes yield nothing.
func (s *Service) Alterations(ctx context.Context, entrezGeneID int, genome alteration.ReferenceGenome) ([]*alteration.Alteration, error) {
	if s.GeneByID(entrezGeneID) == nil {
		return nil, nil
	}
	alts, err := s.alterations.get(ctx, entrezGeneID)
	if err != nil || genome == 0 {
		return alts, err
	}
	var out []*alteration.Alteration
	for _, a := range alts {
		if a.Genomes.Contains(genome) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Evidences returns the curated evidence of a gene.
func (s *Service) Evidences(ctx context.Context, entrezGeneID int) ([]*alteration.Evidence, error) {
	if s.GeneByID(entrezGeneID) == nil {
		return nil, nil
	}
	return s.evidences.get(ctx, entrezGeneID)
}

// VUS returns the alterations of a gene curated as variants of unknown
// significance.
func (s *Service) VUS(ctx context.Context, entrezGeneID int) ([]*alteration.Alteration, error) {
	if s.GeneByID(entrezGeneID) == nil {
		return nil, nil
	}
	return s.vus.get(ctx, entrezGeneID)
}

// AllEvidences returns the evidence of every gene, loading missing genes.
func (s *Service) AllEvidences(ctx context.Context) ([]*alteration.Evidence, error) {
	genes, err := s.Genes(ctx)
	if err != nil {
		return nil, err
	}
	var out []*alteration.Evidence
	for _, g := range genes {
		evs, err := s.evidences.get(ctx, g.EntrezGeneID)
		if err != nil {
			return nil, err
		}
		out = append(out, evs...)
	}
	return out, nil
}

// EvidencesByIDs returns the evidences with the given ids.
func (s *Service) EvidencesByIDs(ctx context.Context, ids []int) ([]*alteration.Evidence, error) {
	return s.filterEvidences(ctx, func(e *alteration.Evidence) bool {
		return slices.Contains(ids, e.ID)
	})
}

// EvidencesByUUIDs returns the evidences with the given UUIDs.
func (s *Service) EvidencesByUUIDs(ctx context.Context, uuids []string) ([]*alteration.Evidence, error) {
	return s.filterEvidences(ctx, func(e *alteration.Evidence) bool {
		return slices.Contains(uuids, e.UUID)
	})
}

func (s *Service) filterEvidences(ctx context.Context, keep func(*alteration.Evidence) bool) ([]*alteration.Evidence, error) {
	all, err := s.AllEvidences(ctx)
	if err != nil {
		return nil, err
	}
	var out []*alteration.Evidence
	for _, e := range all {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Drugs returns the catalog drugs.
func (s *Service) Drugs(ctx context.Context) ([]*alteration.Drug, error) {
	s.mu.RLock()
	drugs := s.drugs
	s.mu.RUnlock()
	if drugs != nil {
		return drugs, nil
	}
	drugs, err := s.catalog.Drugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load drugs: %w", err)
	}
	s.mu.Lock()
	s.drugs = drugs
	s.mu.Unlock()
	return drugs, nil
}

// CancerTypes returns the main cancer types. While the cache is disabled
// they are read from the catalog on every call.
func (s *Service) CancerTypes(ctx context.Context) ([]*alteration.TumorType, error) {
	if !s.Enabled() {
		return s.catalog.CancerTypes(ctx)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancerTypes, nil
}

// Subtypes returns the tumor-type subtypes. While the cache is disabled they
// are read from the catalog on every call.
func (s *Service) Subtypes(ctx context.Context) ([]*alteration.TumorType, error) {
	if !s.Enabled() {
		return s.catalog.Subtypes(ctx)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subtypes, nil
}

// Number returns a cached aggregate.
func (s *Service) Number(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.numbers[key]
	return v, ok
}

// SetNumber caches an aggregate until the next invalidation.
func (s *Service) SetNumber(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numbers[key] = v
}

// MappedTumorTypes returns the tumor types cached for a query and source.
func (s *Service) MappedTumorTypes(query, source string) ([]*alteration.TumorType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.mapped[query+"&"+source]
	return v, ok
}

// SetMappedTumorTypes caches the tumor types a query maps to in a source.
func (s *Service) SetMappedTumorTypes(query, source string, tumorTypes []*alteration.TumorType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapped[query+"&"+source] = tumorTypes
}

// CachedGenes reports, per kind, the genes currently held in memory.
func (s *Service) CachedGenes() map[string][]int {
	return map[string][]int{
		"alterations": s.alterations.genes(),
		"evidences":   s.evidences.genes(),
		"vus":         s.vus.genes(),
	}
}
