package display_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/display"
)

func TestMergeRectsUnionsOverlapping(t *testing.T) {
	rects := []display.Rect{
		{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15},
	}
	// Overlapping rects always merge regardless of growth threshold.
	merged := display.MergeRects(rects, 0)
	require.Len(t, merged, 1)
	require.Equal(t, display.Rect{MinX: 0, MinY: 0, MaxX: 15, MaxY: 15}, merged[0])
}

func TestMergeRectsRespectsGrowthThreshold(t *testing.T) {
	// Two distant small rects: merging would grow the bounding box far
	// past 15%, so they must stay separate.
	rects := []display.Rect{
		{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5},
		{MinX: 100, MinY: 100, MaxX: 105, MaxY: 105},
	}
	merged := display.MergeRects(rects, 0.15)
	require.Len(t, merged, 2)
}

func TestFramebufferDiffRectsOnlyReportsChangedRegions(t *testing.T) {
	prev := display.NewFramebuffer(16, 16)
	cur := prev.Clone()
	cur.Set(2, 2, 1)

	candidates := []display.Rect{
		{MinX: 0, MinY: 0, MaxX: 4, MaxY: 4},
		{MinX: 8, MinY: 8, MaxX: 12, MaxY: 12},
	}
	changed := cur.DiffRects(prev, candidates)
	require.Len(t, changed, 1)
	require.Equal(t, candidates[0], changed[0])
}

func TestPlannerEscalatesToFullAfterPartialBudget(t *testing.T) {
	cfg := display.DefaultPlannerConfig()
	cfg.MaxPartialsBetween = 2
	p := display.NewPlanner(cfg)
	now := time.Unix(1000, 0)

	sb := display.NewStatusBar(display.Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10})
	widgets := []display.Widget{sb}

	plan := p.Plan(now, widgets, 128, 296)
	require.Equal(t, display.Full, plan.Mode, "first plan is always full (no prior full refresh)")
	p.Committed(now, plan.Mode)
	sb.ClearDirty()

	sb.MarkDirty()
	plan = p.Plan(now, widgets, 128, 296)
	require.NotEqual(t, display.Full, plan.Mode)
	p.Committed(now, plan.Mode)
	sb.ClearDirty()

	sb.MarkDirty()
	plan = p.Plan(now, widgets, 128, 296)
	require.NotEqual(t, display.Full, plan.Mode)
	p.Committed(now, plan.Mode)
	sb.ClearDirty()

	sb.MarkDirty()
	plan = p.Plan(now, widgets, 128, 296)
	require.Equal(t, display.Full, plan.Mode, "third partial exceeds the budget of 2")
}

func TestPlannerEscalatesToFullAfterElapsedTime(t *testing.T) {
	cfg := display.DefaultPlannerConfig()
	cfg.MaxFullInterval = time.Minute
	p := display.NewPlanner(cfg)
	now := time.Unix(1000, 0)

	sb := display.NewStatusBar(display.Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10})
	plan := p.Plan(now, []display.Widget{sb}, 128, 296)
	p.Committed(now, plan.Mode)
	sb.ClearDirty()

	sb.MarkDirty()
	later := now.Add(2 * time.Minute)
	plan = p.Plan(later, []display.Widget{sb}, 128, 296)
	require.Equal(t, display.Full, plan.Mode)
}

func TestScreenRenderFrameSkipsWhenNothingDirty(t *testing.T) {
	drv := display.NewSimulatedDriver()
	s := display.NewScreen(32, 32, drv, display.DefaultPlannerConfig())
	sb := display.NewStatusBar(display.Rect{MinX: 0, MinY: 0, MaxX: 32, MaxY: 8})
	s.AddWidget(sb)

	_, ok, err := s.RenderFrame(time.Unix(0, 0))
	require.NoError(t, err)
	require.True(t, ok, "first frame always renders (forced full)")

	_, ok, err = s.RenderFrame(time.Unix(1, 0))
	require.NoError(t, err)
	require.False(t, ok, "no widget marked dirty since last frame")
}

func TestScreenRenderFrameIssuesPartialOnSubsequentChange(t *testing.T) {
	drv := display.NewSimulatedDriver()
	cfg := display.DefaultPlannerConfig()
	s := display.NewScreen(32, 32, drv, cfg)
	sb := display.NewStatusBar(display.Rect{MinX: 0, MinY: 0, MaxX: 32, MaxY: 8})
	s.AddWidget(sb)
	_, _, err := s.RenderFrame(time.Unix(0, 0))
	require.NoError(t, err)

	sb.Battery = 50
	sb.Tick(time.Unix(1, 0))
	plan, ok, err := s.RenderFrame(time.Unix(1, 0))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, display.Full, plan.Mode)
}
