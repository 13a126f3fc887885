package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-oncokb/internal/alteration"
	"github.com/inodb/vibe-oncokb/internal/cache"
	"github.com/inodb/vibe-oncokb/internal/genomenexus"
	"github.com/inodb/vibe-oncokb/internal/relevance"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleCache applies a cache control command. Commands received here come
// from a sibling or an operator and are not propagated unless propagate=true.
func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cmd, err := cache.ParseCommand(q.Get("cmd"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	propagate, _ := strconv.ParseBool(q.Get("propagate"))

	switch cmd {
	case cache.CommandUpdateGene:
		ids, err := parseIDs(q.Get("entrezGeneIds"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(ids) == 0 {
			writeError(w, http.StatusBadRequest, "entrezGeneIds is required")
			return
		}
		if err := s.cache.UpdateGenes(r.Context(), ids, propagate); err != nil {
			s.logger.Error("update genes failed", zap.Ints("entrez_gene_ids", ids), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case cache.CommandReset:
		if err := s.cache.Reset(r.Context(), propagate); err != nil {
			s.logger.Error("cache reset failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case cache.CommandEnable:
		s.cache.Enable()
	case cache.CommandDisable:
		s.cache.Disable()
	case cache.CommandStatus:
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: s.cache.Status()})
}

func (s *Server) handleCachedGenes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.CachedGenes())
}

// parseIDs parses a comma-separated list of Entrez gene ids.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid entrez gene id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type geneJSON struct {
	EntrezGeneID int    `json:"entrezGeneId"`
	HugoSymbol   string `json:"hugoSymbol"`
	Oncogene     bool   `json:"oncogene"`
	TSG          bool   `json:"tsg"`
}

type queryJSON struct {
	Alteration      string `json:"alteration"`
	Type            string `json:"type"`
	Consequence     string `json:"consequence,omitempty"`
	ProteinStart    string `json:"proteinStart,omitempty"`
	ProteinEnd      string `json:"proteinEnd,omitempty"`
	ReferenceGenome string `json:"referenceGenome"`
}

type relevantResponse struct {
	Gene                   geneJSON  `json:"gene"`
	Query                  queryJSON `json:"query"`
	RelevantAlterations    []string  `json:"relevantAlterations"`
	AlleleAlterations      []string  `json:"alleleAlterations"`
	VUS                    bool      `json:"vus"`
	Oncogenic              bool      `json:"oncogenic"`
	OncogenicityDetermined bool      `json:"oncogenicityDetermined"`
	HighestOncogenicity    string    `json:"highestOncogenicity"`
}

// handleRelevant answers which curated alterations apply to a query and
// what its oncogenicity is. The query is either hugoSymbol (or entrezGeneId)
// with alteration, or an hgvsg / genomicLocation resolved by the annotator.
func (s *Server) handleRelevant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	genome := s.genome
	if v := q.Get("referenceGenome"); v != "" {
		g, ok := alteration.ParseReferenceGenome(v)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown reference genome %q", v))
			return
		}
		genome = g
	}

	query, status, err := s.queryAlteration(r, genome)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	id := query.Gene.EntrezGeneID
	catalog, err := s.cache.Alterations(ctx, id, genome)
	if err != nil {
		s.logger.Error("load alterations failed", zap.Int("entrez_gene_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	vus, err := s.cache.VUS(ctx, id)
	if err != nil {
		s.logger.Error("load vus failed", zap.Int("entrez_gene_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	relevant := relevance.RemoveAlternativeAllele(query, genome, relevance.RelevantAlterations(query, genome, catalog))
	alleles := relevance.AlleleAlterations(query, genome, catalog)

	// Evidence is linked to catalog entries, whose genome set may be wider
	// than the query's, so ask about the curated entry when the query names one.
	subject := query
	if c := relevance.FindAlteration(query.Gene, genome, query.Notation, catalog); c != nil {
		subject = c
	}

	resp := relevantResponse{
		Gene: geneJSON{
			EntrezGeneID: query.Gene.EntrezGeneID,
			HugoSymbol:   query.Gene.HugoSymbol,
			Oncogene:     query.Gene.Oncogene,
			TSG:          query.Gene.TSG,
		},
		Query: queryJSON{
			Alteration:      query.Notation,
			Type:            string(query.Type),
			Consequence:     query.Consequence.Term,
			ReferenceGenome: genome.String(),
		},
		RelevantAlterations: notations(relevant),
		AlleleAlterations:   notations(alleles),
		VUS:                 alteration.Contains(vus, subject),
	}
	if query.Start.IsSet() {
		resp.Query.ProteinStart = query.Start.String()
	}
	if query.End.IsSet() {
		resp.Query.ProteinEnd = query.End.String()
	}

	if s.deriver != nil {
		resp.Oncogenic, resp.OncogenicityDetermined, err = s.deriver.IsOncogenic(ctx, subject)
		if err != nil {
			s.logger.Error("derive oncogenicity failed", zap.Stringer("alteration", query), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		highest, err := s.deriver.Highest(ctx, relevant)
		if err != nil {
			s.logger.Error("highest oncogenicity failed", zap.Stringer("alteration", query), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.HighestOncogenicity = string(highest)
	}
	writeJSON(w, http.StatusOK, resp)
}

// queryAlteration builds the query alteration of a relevance request. On
// failure it returns the HTTP status to answer with.
func (s *Server) queryAlteration(r *http.Request, genome alteration.ReferenceGenome) (*alteration.Alteration, int, error) {
	q := r.URL.Query()

	for _, fallback := range []struct {
		param string
		typ   genomenexus.QueryType
	}{
		{"hgvsg", genomenexus.QueryHGVSg},
		{"genomicLocation", genomenexus.QueryGenomicLocation},
	} {
		v := strings.TrimSpace(q.Get(fallback.param))
		if v == "" {
			continue
		}
		if s.annotator == nil {
			return nil, http.StatusBadRequest, fmt.Errorf("%s queries are not enabled", fallback.param)
		}
		a, err := s.annotator.Alteration(r.Context(), fallback.typ, v, genome, s.cache)
		if err != nil {
			s.logger.Warn("annotation fallback failed", zap.String(fallback.param, v), zap.Error(err))
			if errors.Is(err, genomenexus.ErrUpstream) {
				return nil, http.StatusBadGateway, err
			}
			return nil, http.StatusInternalServerError, err
		}
		if a == nil || a.Gene == nil || s.cache.GeneByID(a.Gene.EntrezGeneID) == nil {
			return nil, http.StatusNotFound, fmt.Errorf("no curated gene for %s %q", fallback.param, v)
		}
		return a, 0, nil
	}

	var gene *alteration.Gene
	if v := q.Get("entrezGeneId"); v != "" {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid entrez gene id %q", v)
		}
		gene = s.cache.GeneByID(id)
	} else if v := q.Get("hugoSymbol"); v != "" {
		gene = s.cache.GeneBySymbol(v)
	} else {
		return nil, http.StatusBadRequest, errors.New("hugoSymbol, entrezGeneId, hgvsg or genomicLocation is required")
	}
	if gene == nil {
		return nil, http.StatusNotFound, errors.New("gene is not curated")
	}

	var start, end alteration.Position
	for _, p := range []struct {
		param string
		pos   *alteration.Position
	}{
		{"proteinStart", &start},
		{"proteinEnd", &end},
	} {
		v := strings.TrimSpace(q.Get(p.param))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid %s %q", p.param, v)
		}
		*p.pos = alteration.At(n)
	}

	typ := alteration.Type(strings.ToUpper(strings.TrimSpace(q.Get("type"))))
	return alteration.NewQueryAlteration(gene, q.Get("alteration"), typ, q.Get("consequence"), start, end, genome), 0, nil
}

func notations(alts []*alteration.Alteration) []string {
	out := make([]string, 0, len(alts))
	for _, a := range alts {
		out = append(out, a.Notation)
	}
	return out
}
