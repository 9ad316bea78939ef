// Package display implements the e-paper widget framework: a dirty-rect
// widget tree, an adaptive full/partial refresh planner, a diff-based
// 1-bit framebuffer, and a driver boundary (SPI/GPIO hardware driver or
// SimulatedDriver for tests), spec.md §4.K.
package display

// Rect is an axis-aligned pixel rectangle, half-open on Max.
type Rect struct {
	MinX, MinY, MaxX, MaxY int
}

func (r Rect) Empty() bool { return r.MaxX <= r.MinX || r.MaxY <= r.MinY }

func (r Rect) Width() int  { return r.MaxX - r.MinX }
func (r Rect) Height() int { return r.MaxY - r.MinY }
func (r Rect) Area() int   { return r.Width() * r.Height() }

func (r Rect) Overlaps(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		MinX: min(r.MinX, o.MinX),
		MinY: min(r.MinY, o.MinY),
		MaxX: max(r.MaxX, o.MaxX),
		MaxY: max(r.MaxY, o.MaxY),
	}
}

// mergeableWithin reports whether r and o's union is no more than
// growth fraction larger than the sum of their individual areas -- the
// 15% bounding-box growth threshold the refresh planner merges dirty
// rects under.
func (r Rect) mergeableWithin(o Rect, growth float64) bool {
	sum := r.Area() + o.Area()
	if sum == 0 {
		return true
	}
	combined := r.Union(o).Area()
	return float64(combined) <= float64(sum)*(1+growth)
}

// MergeRects unions overlapping rectangles, then greedily merges any
// remaining pair whose combined bounding box grows by no more than
// growth (default 0.15) over their summed area. Mirrors spec.md §4.K
// step 1.
func MergeRects(rects []Rect, growth float64) []Rect {
	merged := make([]Rect, 0, len(rects))
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		merged = append(merged, r)
	}

	changed := true
	for changed {
		changed = false
		for i := 0; i < len(merged); i++ {
			for j := i + 1; j < len(merged); j++ {
				if merged[i].Overlaps(merged[j]) || merged[i].mergeableWithin(merged[j], growth) {
					merged[i] = merged[i].Union(merged[j])
					merged = append(merged[:j], merged[j+1:]...)
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
	}
	return merged
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
