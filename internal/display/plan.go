package display

import "time"

type RefreshMode int

const (
	PartialFast RefreshMode = iota
	PartialBalanced
	Full
)

func (m RefreshMode) String() string {
	switch m {
	case Full:
		return "FULL"
	case PartialFast:
		return "PARTIAL_FAST"
	case PartialBalanced:
		return "PARTIAL_BALANCED"
	default:
		return "UNKNOWN"
	}
}

// RefreshPlan is what the scheduler hands the driver for one frame.
type RefreshPlan struct {
	Mode  RefreshMode
	Rects []Rect
}

// PlannerConfig mirrors spec.md §4.K's two escalation thresholds.
type PlannerConfig struct {
	MergeGrowth        float64       // default 0.15
	MaxPartialsBetween int           // default 30
	MaxFullInterval    time.Duration // default 120s
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{MergeGrowth: 0.15, MaxPartialsBetween: 30, MaxFullInterval: 120 * time.Second}
}

// Planner implements the adaptive full/partial refresh scheduler.
type Planner struct {
	cfg PlannerConfig

	partialsSinceFull int
	lastFull          time.Time
}

func NewPlanner(cfg PlannerConfig) *Planner {
	return &Planner{cfg: cfg, lastFull: time.Time{}}
}

// Plan collects the dirty rectangles and fast-update flags from widgets
// and decides a refresh mode, per spec.md §4.K steps 1-3. now is used for
// the elapsed-since-last-full escalation; widgets is the full tree in
// render order.
func (p *Planner) Plan(now time.Time, widgets []Widget, panelWidth, panelHeight int) RefreshPlan {
	var dirtyRects []Rect
	anyFast := false
	any := false
	for _, w := range widgets {
		if !w.Dirty() {
			continue
		}
		any = true
		dirtyRects = append(dirtyRects, w.Rect())
		if w.FastUpdate() {
			anyFast = true
		}
	}
	if !any {
		return RefreshPlan{Mode: PartialFast, Rects: nil}
	}

	merged := MergeRects(dirtyRects, p.cfg.MergeGrowth)

	mode := PartialBalanced
	if anyFast {
		mode = PartialFast
	}

	forceFull := p.lastFull.IsZero() ||
		p.partialsSinceFull >= p.cfg.MaxPartialsBetween ||
		now.Sub(p.lastFull) >= p.cfg.MaxFullInterval
	if forceFull {
		mode = Full
		merged = []Rect{{MinX: 0, MinY: 0, MaxX: panelWidth, MaxY: panelHeight}}
	}

	return RefreshPlan{Mode: mode, Rects: merged}
}

// Committed records that a plan was actually sent to the driver, updating
// the full-refresh bookkeeping used by the next Plan call.
func (p *Planner) Committed(now time.Time, mode RefreshMode) {
	if mode == Full {
		p.lastFull = now
		p.partialsSinceFull = 0
		return
	}
	p.partialsSinceFull++
}
