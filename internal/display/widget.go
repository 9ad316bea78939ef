package display

import "time"

// Canvas is the drawing surface a widget's render receives: a view onto
// the shared framebuffer restricted to the widget's own rectangle.
type Canvas struct {
	fb   *Framebuffer
	rect Rect
}

func (c Canvas) Rect() Rect { return c.rect }

// Set paints a pixel in widget-local coordinates (0,0 is the widget's
// top-left corner).
func (c Canvas) Set(x, y int, fg bool) {
	v := byte(0)
	if fg {
		v = 1
	}
	c.fb.Set(c.rect.MinX+x, c.rect.MinY+y, v)
}

// FillRect paints a local rectangle solid.
func (c Canvas) FillRect(x0, y0, x1, y1 int, fg bool) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c.Set(x, y, fg)
		}
	}
}

// Widget is one node of the display's widget tree. Every widget owns a
// rectangle and knows how to render itself into the shared framebuffer;
// animated widgets additionally use tick to advance their own state.
type Widget interface {
	Rect() Rect
	// Tick advances animation state; it must call MarkDirty itself when
	// the visible output changes.
	Tick(now time.Time)
	// Render paints the widget's content into canvas. Called only when
	// the widget is dirty (or during a full refresh).
	Render(canvas Canvas)
	// Dirty reports the widget's dirty flag; ClearDirty clears it.
	Dirty() bool
	ClearDirty()
	// FastUpdate reports whether this widget prefers the fast partial
	// refresh path (e.g. the clock); a partial plan uses it whenever any
	// dirty widget reports true.
	FastUpdate() bool
}

// Base provides the dirty-flag bookkeeping every concrete widget embeds.
type Base struct {
	rect  Rect
	dirty bool
	fast  bool
}

func NewBase(rect Rect, fast bool) Base {
	return Base{rect: rect, dirty: true, fast: fast}
}

func (b *Base) Rect() Rect         { return b.rect }
func (b *Base) MarkDirty()         { b.dirty = true }
func (b *Base) Dirty() bool        { return b.dirty }
func (b *Base) ClearDirty()        { b.dirty = false }
func (b *Base) FastUpdate() bool   { return b.fast }
func (b *Base) Resize(r Rect)      { b.rect = r; b.dirty = true }
