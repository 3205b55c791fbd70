package record

// Row is implemented by every repeating-group row type. WithSeq returns a
// copy with the sequence number replaced; rows are value types so the group
// can renumber without aliasing.
type Row[T any] interface {
	Seq() int
	WithSeq(n int) T
}

// Group holds the rows of one repeating section and enforces its
// cardinality bounds. Every mutation renumbers rows 1..N before returning,
// so observers never see a gap or a duplicate sequence number.
type Group[T Row[T]] struct {
	rows []T
	min  int
	max  int
}

// NewGroup creates a group with the given cardinality bounds and initial
// rows. Initial rows are renumbered 1..N regardless of their incoming
// sequence values.
func NewGroup[T Row[T]](min, max int, rows ...T) *Group[T] {
	g := &Group[T]{min: min, max: max}
	g.Replace(rows)
	return g
}

// Len returns the current row count.
func (g *Group[T]) Len() int { return len(g.rows) }

// Min returns the group's minimum cardinality.
func (g *Group[T]) Min() int { return g.min }

// Max returns the group's maximum cardinality.
func (g *Group[T]) Max() int { return g.max }

// Rows returns a copy of the rows in sequence order.
func (g *Group[T]) Rows() []T {
	out := make([]T, len(g.rows))
	copy(out, g.rows)
	return out
}

// Row returns the row at seq n (1-based) and whether it exists.
func (g *Group[T]) Row(n int) (T, bool) {
	if n < 1 || n > len(g.rows) {
		var zero T
		return zero, false
	}
	return g.rows[n-1], true
}

// Append adds a row at the end. It refuses when the group is already at
// its maximum.
func (g *Group[T]) Append(row T) bool {
	if len(g.rows) >= g.max {
		return false
	}
	g.rows = append(g.rows, row)
	g.reindex()
	return true
}

// Remove deletes the row at seq n (1-based). It refuses when the group is
// at its minimum or n is out of range.
func (g *Group[T]) Remove(n int) bool {
	if n < 1 || n > len(g.rows) || len(g.rows) <= g.min {
		return false
	}
	g.rows = append(g.rows[:n-1], g.rows[n:]...)
	g.reindex()
	return true
}

// Set replaces the row at seq n (1-based), keeping its position.
func (g *Group[T]) Set(n int, row T) bool {
	if n < 1 || n > len(g.rows) {
		return false
	}
	g.rows[n-1] = row.WithSeq(n)
	return true
}

// Move shifts the row at seq n by delta positions, clamping at the group
// edges. A move that lands outside the group becomes a move to the edge;
// a zero-distance move is a no-op that still reports success.
func (g *Group[T]) Move(n, delta int) bool {
	if n < 1 || n > len(g.rows) {
		return false
	}
	target := n + delta
	if target < 1 {
		target = 1
	}
	if target > len(g.rows) {
		target = len(g.rows)
	}
	if target == n {
		return true
	}
	row := g.rows[n-1]
	rest := append(g.rows[:n-1:n-1], g.rows[n:]...)
	g.rows = append(rest[:target-1:target-1], append([]T{row}, rest[target-1:]...)...)
	g.reindex()
	return true
}

// Replace swaps in a whole new row set, renumbered 1..N. Rows beyond the
// maximum are dropped; a short set is padded with zero rows up to the
// minimum so required sections always present their mandatory slots.
func (g *Group[T]) Replace(rows []T) {
	if len(rows) > g.max {
		rows = rows[:g.max]
	}
	g.rows = make([]T, len(rows))
	copy(g.rows, rows)
	for len(g.rows) < g.min {
		var zero T
		g.rows = append(g.rows, zero)
	}
	g.reindex()
}

func (g *Group[T]) reindex() {
	for i, row := range g.rows {
		g.rows[i] = row.WithSeq(i + 1)
	}
}
