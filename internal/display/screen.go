package display

import (
	"sync"
	"time"
)

// Screen is the root of the widget tree: it owns the framebuffer, the
// refresh planner, and the driver, and drives one render cycle per
// RenderFrame call.
type Screen struct {
	mu      sync.Mutex
	widgets []Widget
	fb      *Framebuffer
	prev    *Framebuffer
	planner *Planner
	driver  Driver

	width, height int
}

func NewScreen(width, height int, driver Driver, cfg PlannerConfig) *Screen {
	return &Screen{
		fb:      NewFramebuffer(width, height),
		prev:    NewFramebuffer(width, height),
		planner: NewPlanner(cfg),
		driver:  driver,
		width:   width,
		height:  height,
	}
}

func (s *Screen) AddWidget(w Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgets = append(s.widgets, w)
}

func (s *Screen) Connect() error { return s.driver.Connect() }
func (s *Screen) Close() error   { return s.driver.Close() }

// RenderFrame ticks every widget, renders dirty ones into the
// framebuffer, computes a refresh plan, and if anything actually
// changed, asks the driver to refresh. It returns the plan that was
// issued, or ok=false if nothing was dirty.
func (s *Screen) RenderFrame(now time.Time) (RefreshPlan, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.widgets {
		w.Tick(now)
	}

	plan := s.planner.Plan(now, s.widgets, s.width, s.height)
	if plan.Mode != Full && len(plan.Rects) == 0 {
		return RefreshPlan{}, false, nil
	}

	for _, w := range s.widgets {
		if plan.Mode == Full || w.Dirty() {
			w.Render(Canvas{fb: s.fb, rect: w.Rect()})
		}
	}

	if plan.Mode != Full {
		plan.Rects = s.fb.DiffRects(s.prev, plan.Rects)
		if len(plan.Rects) == 0 {
			s.clearDirty()
			return RefreshPlan{}, false, nil
		}
	}

	if err := s.driver.Refresh(plan, s.fb); err != nil {
		return plan, false, err
	}
	s.planner.Committed(now, plan.Mode)
	s.prev = s.fb.Clone()
	s.clearDirty()
	return plan, true, nil
}

func (s *Screen) clearDirty() {
	for _, w := range s.widgets {
		w.ClearDirty()
	}
}
