package alteration

import "strconv"

// PositionKind distinguishes a concrete residue index from the protein
// boundaries used by non-positional catalog markers.
type PositionKind uint8

const (
	PositionUnset PositionKind = iota
	PositionAt
	PositionProteinStart
	PositionProteinEnd
)

// Position is a 1-based protein residue index, or one of the two protein
// boundaries. Boundaries order before (start) and after (end) every index.
type Position struct {
	kind PositionKind
	n    int
}

// Boundary positions.
var (
	ProteinStart = Position{kind: PositionProteinStart}
	ProteinEnd   = Position{kind: PositionProteinEnd}
)

// Ordinals for the boundaries when a position must live on the integer line,
// e.g. range arithmetic or a database column.
const (
	proteinStartOrdinal = -1
	proteinEndOrdinal   = 100000000
)

// At returns the concrete position n.
func At(n int) Position { return Position{kind: PositionAt, n: n} }

// Kind returns the position kind.
func (p Position) Kind() PositionKind { return p.kind }

// IsSet reports whether the position has been assigned.
func (p Position) IsSet() bool { return p.kind != PositionUnset }

// IsBoundary reports whether p is the protein start or end boundary.
func (p Position) IsBoundary() bool {
	return p.kind == PositionProteinStart || p.kind == PositionProteinEnd
}

// Value returns the residue index for a concrete position.
func (p Position) Value() (int, bool) {
	if p.kind != PositionAt {
		return 0, false
	}
	return p.n, true
}

// Compare orders two set positions: ProteinStart < At(n) < ProteinEnd.
// An unset position orders before everything.
func (p Position) Compare(q Position) int {
	rp, rq := p.rank(), q.rank()
	switch {
	case rp < rq:
		return -1
	case rp > rq:
		return 1
	}
	if p.kind != PositionAt {
		return 0
	}
	switch {
	case p.n < q.n:
		return -1
	case p.n > q.n:
		return 1
	}
	return 0
}

func (p Position) rank() int {
	switch p.kind {
	case PositionProteinStart:
		return 1
	case PositionAt:
		return 2
	case PositionProteinEnd:
		return 3
	}
	return 0
}

// Ordinal maps a set position onto the integer line with the boundaries at
// the extremes. ok is false for an unset position.
func (p Position) Ordinal() (n int, ok bool) {
	switch p.kind {
	case PositionAt:
		return p.n, true
	case PositionProteinStart:
		return proteinStartOrdinal, true
	case PositionProteinEnd:
		return proteinEndOrdinal, true
	}
	return 0, false
}

// PositionFromOrdinal is the inverse of Ordinal.
func PositionFromOrdinal(n int) Position {
	switch {
	case n <= proteinStartOrdinal:
		return ProteinStart
	case n >= proteinEndOrdinal:
		return ProteinEnd
	}
	return At(n)
}

func (p Position) String() string {
	switch p.kind {
	case PositionAt:
		return strconv.Itoa(p.n)
	case PositionProteinStart:
		return "start"
	case PositionProteinEnd:
		return "end"
	}
	return ""
}
