package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reader reads variants from a VCF file, one per alternate allele.
type Reader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	pending    []*Variant
}

// Open opens a VCF file for reading. Gzipped files (.vcf.gz) are detected
// by their magic bytes; "-" reads stdin.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
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

func (r *Reader) readLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	r.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

// readHeader skips the meta-information lines up to and including #CHROM.
func (r *Reader) readHeader() error {
	for {
		line, err := r.readLine()
		if err == io.EOF {
			return &ParseError{Line: r.lineNumber, Message: "no #CHROM header line found"}
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		switch {
		case strings.HasPrefix(line, "##"):
		case strings.HasPrefix(line, "#CHROM"):
			return nil
		default:
			return &ParseError{Line: r.lineNumber, Message: "expected #CHROM header line"}
		}
	}
}

// Next reads the next variant. Multi-allelic records yield one variant per
// allele. It returns nil, nil at the end of the file.
func (r *Reader) Next() (*Variant, error) {
	for len(r.pending) == 0 {
		line, err := r.readLine()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		if line == "" {
			continue
		}
		if r.pending, err = r.parseLine(line); err != nil {
			return nil, err
		}
	}
	v := r.pending[0]
	r.pending = r.pending[1:]
	return v, nil
}

func (r *Reader) parseLine(line string) ([]*Variant, error) {
	fields := strings.SplitN(line, "\t", 9)
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    r.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    r.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	alts := strings.Split(fields[4], ",")
	out := make([]*Variant, 0, len(alts))
	for _, alt := range alts {
		out = append(out, &Variant{
			Chrom:  fields[0],
			Pos:    pos,
			ID:     fields[2],
			Ref:    fields[3],
			Alt:    alt,
			Filter: fields[6],
		})
	}
	return out, nil
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

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
