// Package window computes the minimal contiguous slice of rows a renderer
// must materialize for a given scroll position, with an over-render margin
// on both ends to mask scroll-induced pop-in.
package window

// Range is a half-open index interval [Start, End) into the authoritative
// row sequence
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in this Range
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains returns true iff the given row index falls inside this Range
func (r Range) Contains(idx int) bool {
	return idx >= r.Start && idx < r.End
}

// Conf configures a window Tracker
type Conf struct {
	Margin int // Rows over-rendered beyond each viewport edge. Defaults to 10.
}

// Compute returns the minimal materialization range for a viewport of
// viewportRows rows scrolled to scrollOffset over total rows, padded by
// margin on both ends and clamped to the sequence bounds.
func Compute(total int, scrollOffset int, viewportRows int, margin int) Range {
	if total <= 0 || viewportRows <= 0 {
		return Range{}
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}
	if scrollOffset >= total {
		scrollOffset = total - 1
	}
	start := scrollOffset - margin
	if start < 0 {
		start = 0
	}
	end := scrollOffset + viewportRows + margin
	if end > total {
		end = total
	}
	return Range{Start: start, End: end}
}

// Tracker watches the authoritative sequence's identity across renders,
// deciding when the window must merely recompute (the sequence changed) and
// when it must also reset to the top (the sequence was wholesale-replaced,
// as on table switch, filter/sort change or population completion). Appends
// and in-place edits change the fingerprint without advancing the
// generation, so they recompute without resetting.
type Tracker struct {
	conf        *Conf
	generation  uint64
	fingerprint uint64
	primed      bool
}

// CreateTracker produces a Tracker
func CreateTracker(conf *Conf) *Tracker {
	if conf == nil {
		conf = &Conf{}
	}
	if conf.Margin == 0 {
		conf.Margin = 10
	}
	return &Tracker{conf: conf}
}

// Margin returns the configured over-render margin
func (t *Tracker) Margin() int {
	return t.conf.Margin
}

// Observe feeds the Tracker the current view generation and fingerprint,
// reporting whether the window must recompute and whether scroll must reset
// to the top
func (t *Tracker) Observe(generation uint64, fingerprint uint64) (recompute bool, reset bool) {
	reset = t.primed && generation != t.generation
	recompute = !t.primed || reset || fingerprint != t.fingerprint
	t.generation = generation
	t.fingerprint = fingerprint
	t.primed = true
	return recompute, reset
}
