// Package genomenexus resolves genomic variants the notation parser cannot
// handle, such as HGVSg text, through the Genome Nexus annotation service.
package genomenexus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// ErrUpstream wraps every failure to obtain an answer from Genome Nexus.
var ErrUpstream = errors.New("genome nexus unavailable")

// Default service endpoints per reference genome.
const (
	DefaultGRCh37URL = "https://www.genomenexus.org"
	DefaultGRCh38URL = "https://grch38.genomenexus.org"
	DefaultTimeout   = 30 * time.Second
)

// QueryType is the form of a variant query.
type QueryType int

const (
	// QueryHGVSg is HGVS genomic text, e.g. "7:g.140453136A>T".
	QueryHGVSg QueryType = iota
	// QueryGenomicLocation is "chrom,start,end,ref,alt", e.g. "7,140453136,140453136,A,T".
	QueryGenomicLocation
)

func (t QueryType) String() string {
	if t == QueryGenomicLocation {
		return "genomic_location"
	}
	return "hgvsg"
}

// ProteinPosition is the protein span of a transcript consequence.
type ProteinPosition struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// TranscriptConsequenceSummary is the canonical transcript consequence of a
// variant annotation.
type TranscriptConsequenceSummary struct {
	HugoGeneSymbol   string           `json:"hugoGeneSymbol"`
	EntrezGeneID     string           `json:"entrezGeneId"`
	HGVSpShort       string           `json:"hgvspShort"`
	ProteinPosition  *ProteinPosition `json:"proteinPosition"`
	ConsequenceTerms string           `json:"consequenceTerms"`
	TranscriptID     string           `json:"transcriptId"`
}

type variantAnnotation struct {
	AnnotationSummary *struct {
		TranscriptConsequenceSummary *TranscriptConsequenceSummary `json:"transcriptConsequenceSummary"`
	} `json:"annotation_summary"`
}

// GeneResolver maps a Hugo symbol to a catalog gene.
type GeneResolver interface {
	GeneBySymbol(hugoSymbol string) *alteration.Gene
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	GRCh37URL string
	GRCh38URL string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Client queries Genome Nexus. Requests share one circuit breaker.
type Client struct {
	urls       map[alteration.ReferenceGenome]string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// New creates a client.
func New(opts Options) *Client {
	if opts.GRCh37URL == "" {
		opts.GRCh37URL = DefaultGRCh37URL
	}
	if opts.GRCh38URL == "" {
		opts.GRCh38URL = DefaultGRCh38URL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		urls: map[alteration.ReferenceGenome]string{
			alteration.GRCh37: strings.TrimRight(opts.GRCh37URL, "/"),
			alteration.GRCh38: strings.TrimRight(opts.GRCh38URL, "/"),
		},
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "genomenexus",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("genome nexus circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// TranscriptConsequence returns the canonical transcript consequence of a
// variant, or nil when Genome Nexus has no annotation for it.
func (c *Client) TranscriptConsequence(ctx context.Context, typ QueryType, query string, genome alteration.ReferenceGenome) (*TranscriptConsequenceSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if genome == 0 {
		genome = alteration.DefaultReferenceGenome
	}
	base, ok := c.urls[genome]
	if !ok {
		return nil, fmt.Errorf("unsupported reference genome %d", genome)
	}

	endpoint := base + "/annotation/" + url.PathEscape(query)
	if typ == QueryGenomicLocation {
		endpoint = base + "/annotation/genomic/" + url.PathEscape(query)
	}
	endpoint += "?fields=annotation_summary"

	res, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, endpoint)
	})
	if err != nil {
		c.logger.Warn("genome nexus request failed",
			zap.Stringer("type", typ),
			zap.String("query", query),
			zap.Stringer("genome", genome),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	ann, _ := res.(*variantAnnotation)
	if ann == nil || ann.AnnotationSummary == nil {
		return nil, nil
	}
	return ann.AnnotationSummary.TranscriptConsequenceSummary, nil
}

// fetch performs one request. A 404 is an empty answer, not a failure.
func (c *Client) fetch(ctx context.Context, endpoint string) (*variantAnnotation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var ann variantAnnotation
	if err := json.NewDecoder(resp.Body).Decode(&ann); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ann, nil
}

// Alteration resolves a variant into an annotated query alteration. The gene
// is taken from genes when known there, otherwise built from the response.
// A nil alteration with a nil error means Genome Nexus had no annotation.
func (c *Client) Alteration(ctx context.Context, typ QueryType, query string, genome alteration.ReferenceGenome, genes GeneResolver) (*alteration.Alteration, error) {
	summary, err := c.TranscriptConsequence(ctx, typ, query, genome)
	if err != nil || summary == nil {
		return nil, err
	}
	return summaryAlteration(summary, genome, genes), nil
}

func summaryAlteration(s *TranscriptConsequenceSummary, genome alteration.ReferenceGenome, genes GeneResolver) *alteration.Alteration {
	if genome == 0 {
		genome = alteration.DefaultReferenceGenome
	}
	a := &alteration.Alteration{
		Type:    alteration.TypeMutation,
		Genomes: alteration.NewGenomeSet(genome),
	}
	if s.HugoGeneSymbol != "" {
		if genes != nil {
			a.Gene = genes.GeneBySymbol(s.HugoGeneSymbol)
		}
		if a.Gene == nil {
			a.Gene = &alteration.Gene{HugoSymbol: s.HugoGeneSymbol}
			if id, err := strconv.Atoi(s.EntrezGeneID); err == nil {
				a.Gene.EntrezGeneID = id
			}
		}
	}
	a.Notation = alteration.TrimAlterationName(s.HGVSpShort)
	if p := s.ProteinPosition; p != nil {
		if p.Start != nil {
			a.Start = alteration.At(*p.Start)
		}
		if p.End != nil {
			a.End = alteration.At(*p.End)
		}
	}
	if s.ConsequenceTerms != "" {
		a.Consequence = alteration.LookupConsequence(alteration.MostSevereTerm(s.ConsequenceTerms))
	}
	alteration.Annotate(a, a.Notation)
	return a
}
