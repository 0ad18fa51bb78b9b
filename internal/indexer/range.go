package indexer

import "fmt"

// BlockRange is an inclusive block span handed to a single log fetch.
type BlockRange struct {
	From uint64
	To   uint64
}

// Width returns the number of blocks the range covers.
func (r BlockRange) Width() uint64 {
	return r.To - r.From + 1
}

// SplitRange cuts [from, to] into consecutive ranges of at most width
// blocks. The ranges tile the span exactly: no gaps, no overlap.
func SplitRange(from, to, width uint64) ([]BlockRange, error) {
	if width == 0 {
		return nil, fmt.Errorf("chunk width must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block %d precedes from block %d", to, from)
	}

	ranges := make([]BlockRange, 0, (to-from)/width+1)
	for start := from; start <= to; {
		end := to
		if remaining := to - start + 1; remaining > width {
			end = start + width - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges, nil
}

// Halve splits the range into sub-ranges of half its width, for shrinking
// a fetch the provider rejected as too large. A single-block range cannot
// shrink further and is returned unchanged with ok=false.
func (r BlockRange) Halve() ([]BlockRange, bool) {
	if r.Width() <= 1 {
		return []BlockRange{r}, false
	}
	half := r.Width() / 2
	sub, err := SplitRange(r.From, r.To, half)
	if err != nil {
		return []BlockRange{r}, false
	}
	return sub, true
}
