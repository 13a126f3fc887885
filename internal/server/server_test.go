package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-oncokb/internal/alteration"
	"github.com/inodb/vibe-oncokb/internal/cache"
	"github.com/inodb/vibe-oncokb/internal/genomenexus"
	"github.com/inodb/vibe-oncokb/internal/oncogenicity"
)

var (
	braf = &alteration.Gene{EntrezGeneID: 673, HugoSymbol: "BRAF", Oncogene: true}
	tp53 = &alteration.Gene{EntrezGeneID: 7157, HugoSymbol: "TP53", TSG: true}
)

func catalogAlt(id int, g *alteration.Gene, notation string) *alteration.Alteration {
	a := alteration.ParseMutationString(notation, ",")[0]
	a.ID = id
	a.Gene = g
	a.Genomes = alteration.NewGenomeSet(alteration.GRCh37)
	return a
}

// memCatalog serves a fixed BRAF/TP53 catalog.
type memCatalog struct {
	alterations map[int][]*alteration.Alteration
	evidences   map[int][]*alteration.Evidence
}

func newMemCatalog() *memCatalog {
	v600e := catalogAlt(1, braf, "V600E")
	v600k := catalogAlt(2, braf, "V600K")
	r175h := catalogAlt(3, tp53, "R175H")
	p72r := catalogAlt(4, tp53, "P72R")
	return &memCatalog{
		alterations: map[int][]*alteration.Alteration{
			673:  {v600e, v600k},
			7157: {r175h, p72r},
		},
		evidences: map[int][]*alteration.Evidence{
			673: {
				{ID: 10, Gene: braf, Type: alteration.EvidenceOncogenic, KnownEffect: "Oncogenic", Alterations: []*alteration.Alteration{v600e}},
			},
			7157: {
				{ID: 20, Gene: tp53, Type: alteration.EvidenceOncogenic, KnownEffect: "Likely Oncogenic", Alterations: []*alteration.Alteration{r175h}},
				{ID: 21, Gene: tp53, Type: alteration.EvidenceVUS, Alterations: []*alteration.Alteration{p72r}},
			},
		},
	}
}

func (m *memCatalog) Genes(context.Context) ([]*alteration.Gene, error) {
	return []*alteration.Gene{braf, tp53}, nil
}

func (m *memCatalog) Alterations(_ context.Context, id int) ([]*alteration.Alteration, error) {
	return m.alterations[id], nil
}

func (m *memCatalog) AllAlterations(context.Context) ([]*alteration.Alteration, error) {
	return append(append([]*alteration.Alteration(nil), m.alterations[673]...), m.alterations[7157]...), nil
}

func (m *memCatalog) Evidences(_ context.Context, id int) ([]*alteration.Evidence, error) {
	return m.evidences[id], nil
}

func (m *memCatalog) AllEvidences(context.Context) ([]*alteration.Evidence, error) {
	return append(append([]*alteration.Evidence(nil), m.evidences[673]...), m.evidences[7157]...), nil
}

func (m *memCatalog) Drugs(context.Context) ([]*alteration.Drug, error) {
	return []*alteration.Drug{}, nil
}

func (m *memCatalog) CancerTypes(context.Context) ([]*alteration.TumorType, error) { return nil, nil }

func (m *memCatalog) Subtypes(context.Context) ([]*alteration.TumorType, error) { return nil, nil }

// hotspotSet reports the listed notations as hotspots.
type hotspotSet []string

func (h hotspotSet) IsHotspot(_ context.Context, a *alteration.Alteration) (bool, error) {
	for _, n := range h {
		if n == a.Notation {
			return true, nil
		}
	}
	return false, nil
}

// stubAnnotator returns a fixed alteration or error.
type stubAnnotator struct {
	notation string
	err      error
}

func (s stubAnnotator) Alteration(_ context.Context, _ genomenexus.QueryType, _ string,
	genome alteration.ReferenceGenome, genes genomenexus.GeneResolver) (*alteration.Alteration, error) {
	if s.err != nil {
		return nil, s.err
	}
	return alteration.NewQueryAlteration(genes.GeneBySymbol("BRAF"), s.notation, "", "", alteration.Position{}, alteration.Position{}, genome), nil
}

func newTestServer(t *testing.T, opts cache.Options) (*Server, *cache.Service) {
	t.Helper()
	return newCatalogServer(t, newMemCatalog(), opts)
}

func newCatalogServer(t *testing.T, catalog cache.Catalog, opts cache.Options) (*Server, *cache.Service) {
	t.Helper()
	if opts.Metrics == nil {
		opts.Metrics = cache.NewMetrics("test")
	}
	svc, err := cache.New(catalog, opts)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { svc.Close() })

	srv, err := New(Config{}, svc, oncogenicity.NewDeriver(svc, hotspotSet{"G469A"}))
	require.NoError(t, err)
	return srv, svc
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Addr: ":8080"}.Validate())
	assert.NoError(t, Config{Addr: "localhost:9000", ReferenceGenome: "GRCh38"}.Validate())

	err := Config{Addr: "nowhere"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hostname_port")

	err = Config{Addr: ":8080", ReferenceGenome: "hg19"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referencegenome")
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, cache.Options{})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	do(t, h, http.MethodPost, "/cache?cmd=reset")
	rec = do(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_cache_events_total{event="reset"} 1`)
}

func TestCacheCommands(t *testing.T) {
	srv, svc := newTestServer(t, cache.Options{})
	h := srv.Handler()

	tests := []struct {
		method, target string
		code           int
		status         string
	}{
		{http.MethodGet, "/cache?cmd=getStatus", http.StatusOK, cache.StatusEnabled},
		{http.MethodPost, "/cache?cmd=disable", http.StatusOK, cache.StatusDisabled},
		{http.MethodGet, "/cache?cmd=getStatus", http.StatusOK, cache.StatusDisabled},
		{http.MethodPost, "/cache?cmd=enable", http.StatusOK, cache.StatusEnabled},
		{http.MethodPost, "/cache?cmd=reset", http.StatusOK, cache.StatusEnabled},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, tt.status, decode[statusResponse](t, rec).Status)
		})
	}
	assert.True(t, svc.Enabled())
}

func TestCacheUpdateGene(t *testing.T) {
	srv, svc := newTestServer(t, cache.Options{})
	h := srv.Handler()
	require.Contains(t, svc.CachedGenes()["alterations"], 673)

	rec := do(t, h, http.MethodPost, "/cache?cmd=updateGene&entrezGeneIds=673")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/cache/genes")
	require.Equal(t, http.StatusOK, rec.Code)
	cached := decode[map[string][]int](t, rec)
	assert.Equal(t, []int{7157}, cached["alterations"])
	assert.Equal(t, []int{7157}, cached["evidences"])
}

func TestCacheBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, cache.Options{})
	h := srv.Handler()

	for _, target := range []string{
		"/cache",
		"/cache?cmd=flush",
		"/cache?cmd=updateGene",
		"/cache?cmd=updateGene&entrezGeneIds=BRAF",
	} {
		t.Run(target, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestCachePropagation(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	sibling := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
	}))
	defer sibling.Close()

	srv, svc := newTestServer(t, cache.Options{Siblings: []string{sibling.URL + "/cache"}})
	h := srv.Handler()

	// Commands from a sibling are applied locally only.
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/cache?cmd=updateGene&entrezGeneIds=673").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/cache?cmd=reset&propagate=true").Code)
	svc.WaitNotifications()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"cmd=reset"}, queries)
}

func TestRelevant(t *testing.T) {
	srv, _ := newTestServer(t, cache.Options{})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/relevant?hugoSymbol=braf&alteration=V600E")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[relevantResponse](t, rec)

	assert.Equal(t, 673, resp.Gene.EntrezGeneID)
	assert.Equal(t, "V600E", resp.Query.Alteration)
	assert.Equal(t, "missense_variant", resp.Query.Consequence)
	assert.Equal(t, "600", resp.Query.ProteinStart)
	assert.Equal(t, "GRCh37", resp.Query.ReferenceGenome)
	assert.Contains(t, resp.RelevantAlterations, "V600E")
	assert.NotContains(t, resp.RelevantAlterations, "V600K")
	assert.Equal(t, []string{"V600K"}, resp.AlleleAlterations)
	assert.False(t, resp.VUS)
	assert.True(t, resp.Oncogenic)
	assert.True(t, resp.OncogenicityDetermined)
	assert.Equal(t, string(oncogenicity.Yes), resp.HighestOncogenicity)
}

func TestRelevant_Oncogenicity(t *testing.T) {
	srv, _ := newTestServer(t, cache.Options{})
	h := srv.Handler()

	tests := []struct {
		name       string
		target     string
		oncogenic  bool
		determined bool
		vus        bool
	}{
		{"curated likely oncogenic", "/relevant?entrezGeneId=7157&alteration=R175H", true, true, false},
		{"vus", "/relevant?hugoSymbol=TP53&alteration=P72R", false, false, true},
		{"uncurated hotspot", "/relevant?hugoSymbol=BRAF&alteration=G469A", true, true, false},
		{"uncurated", "/relevant?hugoSymbol=BRAF&alteration=V600R", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decode[relevantResponse](t, rec)
			assert.Equal(t, tt.oncogenic, resp.Oncogenic)
			assert.Equal(t, tt.determined, resp.OncogenicityDetermined)
			assert.Equal(t, tt.vus, resp.VUS)
		})
	}
}

func TestRelevant_GenomeFilter(t *testing.T) {
	srv, _ := newTestServer(t, cache.Options{})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/relevant?hugoSymbol=BRAF&alteration=V600E&referenceGenome=grch38")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[relevantResponse](t, rec)
	assert.Equal(t, "GRCh38", resp.Query.ReferenceGenome)
	assert.Empty(t, resp.RelevantAlterations, "catalog holds GRCh37 entries only")
}

func TestRelevant_Errors(t *testing.T) {
	srv, _ := newTestServer(t, cache.Options{})
	h := srv.Handler()

	tests := []struct {
		target string
		code   int
	}{
		{"/relevant?alteration=V600E", http.StatusBadRequest},
		{"/relevant?hugoSymbol=KRAS&alteration=G12D", http.StatusNotFound},
		{"/relevant?entrezGeneId=abc", http.StatusBadRequest},
		{"/relevant?hugoSymbol=BRAF&alteration=V600E&referenceGenome=hg19", http.StatusBadRequest},
		{"/relevant?hugoSymbol=BRAF&proteinStart=six", http.StatusBadRequest},
		{"/relevant?hgvsg=7:g.140453136A>T", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestRelevant_Annotator(t *testing.T) {
	srv, _ := newTestServer(t, cache.Options{})
	h := srv.Handler()

	srv.SetAnnotator(stubAnnotator{notation: "V600E"})
	rec := do(t, h, http.MethodGet, "/relevant?hgvsg=7:g.140453136A>T")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[relevantResponse](t, rec)
	assert.Equal(t, "BRAF", resp.Gene.HugoSymbol)
	assert.True(t, resp.Oncogenic)

	srv.SetAnnotator(stubAnnotator{err: fmt.Errorf("%w: connection refused", genomenexus.ErrUpstream)})
	rec = do(t, h, http.MethodGet, "/relevant?genomicLocation=7,140453136,140453136,A,T")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "genome nexus"), string(body))
}

func TestRelevant_CatalogCoveringBothGenomes(t *testing.T) {
	cat := newMemCatalog()
	for _, alts := range cat.alterations {
		for _, a := range alts {
			a.Genomes = alteration.AllGenomes
		}
	}
	srv, _ := newCatalogServer(t, cat, cache.Options{})
	h := srv.Handler()

	for _, genome := range []string{"GRCh37", "GRCh38"} {
		t.Run(genome, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/relevant?hugoSymbol=TP53&alteration=P72R&referenceGenome="+genome)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decode[relevantResponse](t, rec)
			assert.True(t, resp.VUS)
			assert.False(t, resp.Oncogenic)

			rec = do(t, h, http.MethodGet, "/relevant?hugoSymbol=TP53&alteration=R175H&referenceGenome="+genome)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp = decode[relevantResponse](t, rec)
			assert.False(t, resp.VUS)
			assert.True(t, resp.Oncogenic)
			assert.True(t, resp.OncogenicityDetermined)
		})
	}
}
