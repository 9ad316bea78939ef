package display

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"github.com/vincent99/chessboard/internal/chesscore"
	"github.com/vincent99/chessboard/internal/store"
)

// StatusBar shows battery, Bluetooth pairing state and controller mode.
type StatusBar struct {
	Base
	Battery    int
	Charging   bool
	Paired     bool
	lastPaired bool
	lastBatt   int
}

func NewStatusBar(rect Rect) *StatusBar {
	return &StatusBar{Base: NewBase(rect, false)}
}

func (w *StatusBar) Tick(now time.Time) {
	if w.Battery != w.lastBatt || w.Paired != w.lastPaired {
		w.lastBatt, w.lastPaired = w.Battery, w.Paired
		w.MarkDirty()
	}
}

func (w *StatusBar) Render(c Canvas) {
	r := c.Rect()
	c.FillRect(0, 0, r.Width(), r.Height(), false)
	fillW := r.Width() * w.Battery / 100
	c.FillRect(0, 0, fillW, r.Height(), true)
}

// Sprites decodes the pre-rendered PNG piece sprites once at startup,
// matching hub.go's screencast path which already decodes PNG frames.
type Sprites struct {
	images map[string]image.Image
}

func LoadSprites(r io.Reader) (*Sprites, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode sprite sheet: %w", err)
	}
	// A 12-cell sheet, one piece per cell, is expected. The sheet is kept
	// whole and returned by Sheet; no per-piece cell lookup is provided.
	return &Sprites{images: map[string]image.Image{"sheet": img}}, nil
}

func (s *Sprites) Sheet() image.Image { return s.images["sheet"] }

// BoardWidget renders the 8x8 board: squares, a filled block for each
// occupied square, flip-for-black, and a highlight layer for the last move
// and lifted square. The sprites it is constructed with are not drawn.
type BoardWidget struct {
	Base
	Position  *chesscore.Position
	FlipBlack bool
	Highlight [2]chesscore.Square // from,to of last move; NoSquare to clear
	sprites   *Sprites

	lastFEN string
}

func NewBoardWidget(rect Rect, sprites *Sprites) *BoardWidget {
	return &BoardWidget{Base: NewBase(rect, false), sprites: sprites}
}

// SyncPosition updates the rendered position and marks dirty only when
// the FEN actually changed.
func (w *BoardWidget) SyncPosition(pos *chesscore.Position) {
	if pos == nil {
		return
	}
	fen := pos.FEN()
	if fen == w.lastFEN {
		return
	}
	w.lastFEN = fen
	w.Position = pos
	w.MarkDirty()
}

func (w *BoardWidget) Tick(now time.Time) {}

func (w *BoardWidget) Render(c Canvas) {
	r := c.Rect()
	square := r.Width() / 8
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			drawRank, drawFile := rank, file
			if w.FlipBlack {
				drawRank, drawFile = 7-rank, 7-file
			}
			dark := (file+rank)%2 == 1
			x0, y0 := drawFile*square, drawRank*square
			c.FillRect(x0, y0, x0+square, y0+square, dark)
		}
	}
	if w.Position == nil {
		return
	}
	for sq := chesscore.Square(0); sq < 64; sq++ {
		_, ok := w.Position.PieceAt(sq)
		if !ok {
			continue
		}
		file, rank := sq.File(), sq.Rank()
		drawRank, drawFile := rank, file
		if w.FlipBlack {
			drawRank, drawFile = 7-rank, 7-file
		}
		x0, y0 := drawFile*square, drawRank*square
		// Each piece is drawn as a filled square inset by 2 pixels;
		// w.sprites is not composited.
		c.FillRect(x0+2, y0+2, x0+square-2, y0+square-2, true)
	}
	if w.Highlight[0] != chesscore.NoSquare {
		w.renderHighlightSquare(c, square, w.Highlight[0])
	}
	if w.Highlight[1] != chesscore.NoSquare {
		w.renderHighlightSquare(c, square, w.Highlight[1])
	}
}

func (w *BoardWidget) renderHighlightSquare(c Canvas, square int, sq chesscore.Square) {
	file, rank := sq.File(), sq.Rank()
	drawRank, drawFile := rank, file
	if w.FlipBlack {
		drawRank, drawFile = 7-rank, 7-file
	}
	x0, y0 := drawFile*square, drawRank*square
	for i := 0; i < square; i++ {
		c.Set(x0+i, y0, true)
		c.Set(x0+i, y0+square-1, true)
		c.Set(x0, y0+i, true)
		c.Set(x0+square-1, y0+i, true)
	}
}

// ClockWidget renders remaining time for both colors; it requests fast
// partial updates since it changes every second while running.
type ClockWidget struct {
	Base
	WhiteMS, BlackMS int64
	Running          bool
	ActiveColor      chesscore.Color

	lastWhiteSec, lastBlackSec int64
}

func NewClockWidget(rect Rect) *ClockWidget {
	return &ClockWidget{Base: NewBase(rect, true)}
}

func (w *ClockWidget) Sync(cs store.ClockState) {
	w.WhiteMS, w.BlackMS, w.Running, w.ActiveColor = cs.WhiteMS, cs.BlackMS, cs.Running, cs.ActiveColor
	whiteSec, blackSec := cs.WhiteMS/1000, cs.BlackMS/1000
	if whiteSec != w.lastWhiteSec || blackSec != w.lastBlackSec {
		w.lastWhiteSec, w.lastBlackSec = whiteSec, blackSec
		w.MarkDirty()
	}
}

func (w *ClockWidget) Tick(now time.Time) {}

func (w *ClockWidget) Render(c Canvas) {
	r := c.Rect()
	c.FillRect(0, 0, r.Width(), r.Height(), false)
	half := r.Width() / 2
	whiteActive := w.Running && w.ActiveColor == chesscore.White
	blackActive := w.Running && w.ActiveColor == chesscore.Black
	if whiteActive {
		c.FillRect(0, 0, half, 2, true)
	}
	if blackActive {
		c.FillRect(half, 0, r.Width(), 2, true)
	}
}

// AnalysisWidget renders an evaluation bar and a score-over-ply graph.
type AnalysisWidget struct {
	Base
	Entries []store.AnalysisEntry

	lastLen int
}

func NewAnalysisWidget(rect Rect) *AnalysisWidget {
	return &AnalysisWidget{Base: NewBase(rect, false)}
}

func (w *AnalysisWidget) Sync(entries []store.AnalysisEntry) {
	w.Entries = entries
	if len(entries) != w.lastLen {
		w.lastLen = len(entries)
		w.MarkDirty()
	}
}

func (w *AnalysisWidget) Tick(now time.Time) {}

func (w *AnalysisWidget) Render(c Canvas) {
	r := c.Rect()
	c.FillRect(0, 0, r.Width(), r.Height(), false)
	if len(w.Entries) == 0 {
		return
	}
	last := w.Entries[len(w.Entries)-1]
	barMid := r.Width() / 2
	offset := last.ScoreCP / 20
	if offset > barMid {
		offset = barMid
	}
	if offset < -barMid {
		offset = -barMid
	}
	c.FillRect(barMid, 0, barMid+offset, r.Height()/4, true)
}

// IconMenuItem is one selectable entry in the icon menu.
type IconMenuItem struct {
	Label string
}

// IconMenuWidget renders a row of selectable icons with one highlighted
// selection.
type IconMenuWidget struct {
	Base
	Items    []IconMenuItem
	Selected int

	lastSelected int
}

func NewIconMenuWidget(rect Rect, items []IconMenuItem) *IconMenuWidget {
	return &IconMenuWidget{Base: NewBase(rect, false), Items: items}
}

func (w *IconMenuWidget) Select(i int) {
	if i == w.Selected {
		return
	}
	w.Selected = i
	w.MarkDirty()
}

func (w *IconMenuWidget) Tick(now time.Time) {}

func (w *IconMenuWidget) Render(c Canvas) {
	r := c.Rect()
	c.FillRect(0, 0, r.Width(), r.Height(), false)
	if len(w.Items) == 0 {
		return
	}
	cell := r.Width() / len(w.Items)
	x0 := w.Selected * cell
	c.FillRect(x0, 0, x0+cell, r.Height(), true)
}

// KeyboardWidget is the on-screen keyboard used for naming players and
// entering Wi-Fi credentials.
type KeyboardWidget struct {
	Base
	Rows   []string
	Cursor int

	lastCursor int
}

func NewKeyboardWidget(rect Rect, rows []string) *KeyboardWidget {
	return &KeyboardWidget{Base: NewBase(rect, false), Rows: rows}
}

func (w *KeyboardWidget) MoveCursor(delta int) {
	total := 0
	for _, row := range w.Rows {
		total += len(row)
	}
	if total == 0 {
		return
	}
	w.Cursor = ((w.Cursor+delta)%total + total) % total
	if w.Cursor != w.lastCursor {
		w.lastCursor = w.Cursor
		w.MarkDirty()
	}
}

func (w *KeyboardWidget) Tick(now time.Time) {}

func (w *KeyboardWidget) Render(c Canvas) {
	r := c.Rect()
	c.FillRect(0, 0, r.Width(), r.Height(), false)
}

// SplashWidget shows the boot splash; it is dirty exactly once until
// Dismiss is called.
type SplashWidget struct {
	Base
	Message string
}

func NewSplashWidget(rect Rect, message string) *SplashWidget {
	return &SplashWidget{Base: NewBase(rect, false), Message: message}
}

func (w *SplashWidget) Dismiss() { w.MarkDirty() }
func (w *SplashWidget) Tick(now time.Time) {}
func (w *SplashWidget) Render(c Canvas) {
	r := c.Rect()
	c.FillRect(0, 0, r.Width(), r.Height(), true)
}

// AlertWidget shows a transient message (wrong-move buzz, link-lost
// notice) that auto-clears after a duration.
type AlertWidget struct {
	Base
	Message  string
	expireAt time.Time
	showing  bool
}

func NewAlertWidget(rect Rect) *AlertWidget {
	return &AlertWidget{Base: NewBase(rect, false)}
}

func (w *AlertWidget) Show(message string, d time.Duration, now time.Time) {
	w.Message = message
	w.expireAt = now.Add(d)
	w.showing = true
	w.MarkDirty()
}

func (w *AlertWidget) Tick(now time.Time) {
	if w.showing && !now.Before(w.expireAt) {
		w.showing = false
		w.MarkDirty()
	}
}

func (w *AlertWidget) Render(c Canvas) {
	r := c.Rect()
	c.FillRect(0, 0, r.Width(), r.Height(), w.showing)
}

// GameOverWidget announces the final result and reason.
type GameOverWidget struct {
	Base
	Result chesscore.Outcome
	Reason chesscore.TerminationReason
	shown  bool
}

func NewGameOverWidget(rect Rect) *GameOverWidget {
	return &GameOverWidget{Base: NewBase(rect, false)}
}

func (w *GameOverWidget) Announce(result chesscore.Outcome, reason chesscore.TerminationReason) {
	w.Result, w.Reason, w.shown = result, reason, true
	w.MarkDirty()
}

func (w *GameOverWidget) Clear() {
	if !w.shown {
		return
	}
	w.shown = false
	w.MarkDirty()
}

func (w *GameOverWidget) Tick(now time.Time) {}
func (w *GameOverWidget) Render(c Canvas) {
	r := c.Rect()
	c.FillRect(0, 0, r.Width(), r.Height(), w.shown)
}
