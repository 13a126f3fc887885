package genomenexus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

const brafResponse = `{
  "variant": "7:g.140453136A>T",
  "annotation_summary": {
    "transcriptConsequenceSummary": {
      "transcriptId": "ENST00000288602",
      "hugoGeneSymbol": "BRAF",
      "entrezGeneId": "673",
      "hgvspShort": "p.V600E",
      "proteinPosition": {"start": 600, "end": 600},
      "consequenceTerms": "missense_variant"
    }
  }
}`

type genes map[string]*alteration.Gene

func (g genes) GeneBySymbol(s string) *alteration.Gene { return g[s] }

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestAlteration_HGVSg(t *testing.T) {
	var path, query string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		path, query = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(brafResponse))
	})
	c := New(Options{GRCh37URL: srv.URL + "/", GRCh38URL: "http://unused.invalid"})

	braf := &alteration.Gene{EntrezGeneID: 673, HugoSymbol: "BRAF", Oncogene: true}
	a, err := c.Alteration(context.Background(), QueryHGVSg, " 7:g.140453136A>T ", 0, genes{"BRAF": braf})
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, "/annotation/7:g.140453136A>T", path)
	assert.Equal(t, "fields=annotation_summary", query)
	assert.Same(t, braf, a.Gene)
	assert.Equal(t, "V600E", a.Notation)
	assert.Equal(t, alteration.At(600), a.Start)
	assert.Equal(t, alteration.At(600), a.End)
	assert.True(t, a.Consequence.Is(alteration.TermMissenseVariant))
	assert.Equal(t, alteration.NewGenomeSet(alteration.GRCh37), a.Genomes)
	assert.Equal(t, "E", a.VariantResidues)
}

func TestAlteration_UnknownGeneAndGRCh38(t *testing.T) {
	var path string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"annotation_summary": {"transcriptConsequenceSummary": {
			"hugoGeneSymbol": "NEWGENE", "entrezGeneId": "12345", "hgvspShort": "p.R10*",
			"proteinPosition": {"start": 10, "end": 10},
			"consequenceTerms": "stop_gained,splice_region_variant"}}}`))
	})
	c := New(Options{GRCh37URL: "http://unused.invalid", GRCh38URL: srv.URL})

	a, err := c.Alteration(context.Background(), QueryGenomicLocation, "1,100,100,C,T", alteration.GRCh38, nil)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "/annotation/genomic/1,100,100,C,T", path)
	assert.Equal(t, &alteration.Gene{EntrezGeneID: 12345, HugoSymbol: "NEWGENE"}, a.Gene)
	assert.True(t, a.Consequence.Is(alteration.TermStopGained))
	assert.Equal(t, alteration.NewGenomeSet(alteration.GRCh38), a.Genomes)
}

func TestAlteration_NoAnnotation(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/annotation/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"variant": "x"}`))
	})
	c := New(Options{GRCh37URL: srv.URL})

	for _, q := range []string{"missing", "empty", ""} {
		a, err := c.Alteration(context.Background(), QueryHGVSg, q, alteration.GRCh37, nil)
		require.NoError(t, err, q)
		assert.Nil(t, a, q)
	}
}

func TestAlteration_UpstreamFailure(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	})
	c := New(Options{GRCh37URL: srv.URL})

	_, err := c.Alteration(context.Background(), QueryHGVSg, "7:g.1A>T", 0, nil)
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "502")

	// Five consecutive failures open the breaker; later calls fail fast.
	for range 4 {
		_, err = c.Alteration(context.Background(), QueryHGVSg, "7:g.1A>T", 0, nil)
		require.ErrorIs(t, err, ErrUpstream)
	}
	before := hits.Load()
	_, err = c.Alteration(context.Background(), QueryHGVSg, "7:g.1A>T", 0, nil)
	require.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, before, hits.Load())
}

func TestAlteration_MalformedResponse(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})
	c := New(Options{GRCh37URL: srv.URL})
	_, err := c.Alteration(context.Background(), QueryHGVSg, "7:g.1A>T", 0, nil)
	assert.ErrorIs(t, err, ErrUpstream)
}
