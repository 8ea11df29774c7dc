package table

import "github.com/tvanderstad/parasol-db/internal/view"

// Cursor walks a fixed index range from either end. Next and NextBack consume
// from the front and back respectively and stop once they meet, so draining a
// cursor with NextBack yields exactly the reverse of draining it with Next.
type Cursor[E any] struct {
	seqs   []view.Seq
	events []E
	front  int // inclusive
	back   int // exclusive, decremented before use so it can reach front
}

// Next returns the lowest remaining record.
func (c *Cursor[E]) Next() (view.Seq, E, bool) {
	if c.front >= c.back {
		var zero E
		return 0, zero, false
	}
	i := c.front
	c.front++
	return c.seqs[i], c.events[i], true
}

// NextBack returns the highest remaining record.
func (c *Cursor[E]) NextBack() (view.Seq, E, bool) {
	if c.front >= c.back {
		var zero E
		return 0, zero, false
	}
	c.back--
	return c.seqs[c.back], c.events[c.back], true
}

// Remaining reports how many records are left.
func (c *Cursor[E]) Remaining() int {
	if c.back < c.front {
		return 0
	}
	return c.back - c.front
}
