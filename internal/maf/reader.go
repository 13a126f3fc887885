// Package maf reads alteration calls from MAF (Mutation Annotation Format) files.
package maf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/vibe-oncokb/internal/alteration"
)

// Standard MAF column names
const (
	ColHugoSymbol            = "Hugo_Symbol"
	ColEntrezGeneID          = "Entrez_Gene_Id"
	ColNCBIBuild             = "NCBI_Build"
	ColChromosome            = "Chromosome"
	ColStartPosition         = "Start_Position"
	ColEndPosition           = "End_Position"
	ColVariantClassification = "Variant_Classification"
	ColReferenceAllele       = "Reference_Allele"
	ColTumorSeqAllele2       = "Tumor_Seq_Allele2"
	ColHGVSpShort            = "HGVSp_Short"
)

// columns holds the indices of the MAF columns the reader uses; -1 when absent.
type columns struct {
	hugoSymbol            int
	entrezGeneID          int
	ncbiBuild             int
	chromosome            int
	startPosition         int
	endPosition           int
	variantClassification int
	referenceAllele       int
	tumorSeqAllele2       int
	hgvspShort            int
}

// Record is one MAF data line.
type Record struct {
	Line                  int
	HugoSymbol            string
	EntrezGeneID          int
	NCBIBuild             string
	Chromosome            string
	Start                 int64
	End                   int64
	VariantClassification string
	Ref                   string
	Alt                   string
	HGVSpShort            string
}

// ProteinChange returns the protein change without its "p." prefix, or ""
// when the call has none.
func (r *Record) ProteinChange() string {
	return alteration.TrimAlterationName(strings.TrimSpace(r.HGVSpShort))
}

// HGVSg returns the genomic HGVS notation of a single nucleotide call, or ""
// for calls that are not SNVs.
func (r *Record) HGVSg() string {
	if r.Chromosome == "" || r.Start <= 0 || len(r.Ref) != 1 || len(r.Alt) != 1 || r.Ref == r.Alt {
		return ""
	}
	chrom := strings.TrimPrefix(r.Chromosome, "chr")
	return fmt.Sprintf("%s:g.%d%s>%s", chrom, r.Start, r.Ref, r.Alt)
}

// Genome returns the reference genome named by NCBI_Build.
func (r *Record) Genome() (alteration.ReferenceGenome, bool) {
	build := r.NCBIBuild
	if build == "37" || build == "38" {
		build = "GRCh" + build
	}
	return alteration.ParseReferenceGenome(build)
}

// Reader reads records from a MAF file.
type Reader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	columns    columns
}

// Open opens a MAF file for reading. Gzipped files (.maf.gz) are detected
// by their magic bytes; "-" reads stdin.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maf file: %w", err)
	}

	r := &Reader{file: file}
	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		r.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		br = bufio.NewReader(r.gzipReader)
	}
	r.reader = br

	if err := r.readHeader(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// NewReader creates a reader from an io.Reader.
func NewReader(in io.Reader) (*Reader, error) {
	r := &Reader{reader: bufio.NewReader(in)}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

// readHeader skips comment lines and maps the header columns.
func (r *Reader) readHeader() error {
	for {
		line, err := r.readLine()
		if err == io.EOF {
			return &ParseError{Line: r.lineNumber, Message: "no header line found"}
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return r.mapColumns(line)
	}
}

func (r *Reader) mapColumns(header string) error {
	r.columns = columns{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
	for i, col := range strings.Split(header, "\t") {
		switch strings.TrimSpace(col) {
		case ColHugoSymbol:
			r.columns.hugoSymbol = i
		case ColEntrezGeneID:
			r.columns.entrezGeneID = i
		case ColNCBIBuild:
			r.columns.ncbiBuild = i
		case ColChromosome:
			r.columns.chromosome = i
		case ColStartPosition:
			r.columns.startPosition = i
		case ColEndPosition:
			r.columns.endPosition = i
		case ColVariantClassification:
			r.columns.variantClassification = i
		case ColReferenceAllele:
			r.columns.referenceAllele = i
		case ColTumorSeqAllele2:
			r.columns.tumorSeqAllele2 = i
		case ColHGVSpShort:
			r.columns.hgvspShort = i
		}
	}

	if r.columns.hugoSymbol == -1 {
		return &ParseError{Line: r.lineNumber, Message: "required column 'Hugo_Symbol' not found in header"}
	}
	if r.columns.hgvspShort == -1 && (r.columns.chromosome == -1 || r.columns.startPosition == -1) {
		return &ParseError{Line: r.lineNumber, Message: "header has neither 'HGVSp_Short' nor genomic coordinates"}
	}
	return nil
}

func (r *Reader) readLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	r.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

// Next reads the next record. It returns nil, nil at the end of the file.
func (r *Reader) Next() (*Record, error) {
	for {
		line, err := r.readLine()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read maf line: %w", err)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return r.parseLine(line)
	}
}

func (r *Reader) parseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")
	field := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	rec := &Record{
		Line:                  r.lineNumber,
		HugoSymbol:            field(r.columns.hugoSymbol),
		NCBIBuild:             field(r.columns.ncbiBuild),
		Chromosome:            field(r.columns.chromosome),
		VariantClassification: field(r.columns.variantClassification),
		Ref:                   field(r.columns.referenceAllele),
		Alt:                   field(r.columns.tumorSeqAllele2),
		HGVSpShort:            field(r.columns.hgvspShort),
	}
	if rec.HugoSymbol == "" {
		return nil, &ParseError{Line: r.lineNumber, Message: "empty Hugo_Symbol"}
	}
	// MAF uses "-" for the empty allele of insertions and deletions.
	if rec.Ref == "-" {
		rec.Ref = ""
	}
	if rec.Alt == "-" {
		rec.Alt = ""
	}

	var err error
	if v := field(r.columns.entrezGeneID); v != "" {
		if rec.EntrezGeneID, err = strconv.Atoi(v); err != nil {
			return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid Entrez_Gene_Id: %s", v)}
		}
	}
	if v := field(r.columns.startPosition); v != "" {
		if rec.Start, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid position: %s", v)}
		}
	}
	if v := field(r.columns.endPosition); v != "" {
		if rec.End, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid position: %s", v)}
		}
	}
	return rec, nil
}

// LineNumber returns the number of lines read so far.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close closes the reader and the underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ParseError represents an error during MAF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("maf parse error at line %d: %s", e.Line, e.Message)
}
