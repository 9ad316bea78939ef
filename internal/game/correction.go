package game

import (
	hungarian "github.com/oddg/hungarian-algorithm"
	"github.com/vincent99/chessboard/internal/board"
	"github.com/vincent99/chessboard/internal/chesscore"
)

// enterCorrectionMode is called with e.mu held. It snapshots the expected
// (authoritative) bitmap, reads the physical board, and starts LED
// guidance. If the boards already agree it is a no-op.
func (e *Engine) enterCorrectionMode() {
	expected := e.store.Game.Get().Position.PresenceBitmap()
	have, err := e.board.ReadBoardState()
	if err != nil {
		// Link is unavailable; correction will resume once OnReconnect
		// is called.
		return
	}
	if have == expected {
		return
	}

	e.correctionMode = true
	e.expected = expected
	e.liftedFrom = chesscore.NoSquare

	missing, spurious := chesscore.Diff(have, expected)
	if e.alerts.OnCorrectionStart != nil {
		e.alerts.OnCorrectionStart(missing, spurious)
	}
	e.renderCorrectionGuidance(have)
}

// renderCorrectionGuidance lights the LED array: steady for a square
// missing a piece, flashing for a square holding a piece that shouldn't be
// there. When the two sets are equal in size (a pure displacement, the
// common case after a take-back or a dropped move), guidance is paired up
// via minimum-cost bipartite matching on square distance so the user is
// steered through the shortest possible corrective moves; ties are broken
// by the lexicographically smallest sequence of target squares, so
// repeated runs against the same diff always produce the same guidance.
func (e *Engine) renderCorrectionGuidance(have chesscore.PiecePresenceBitmap) {
	missing, spurious := chesscore.Diff(have, e.expected)
	missingSquares := bitsOf(missing)
	spuriousSquares := bitsOf(spurious)

	_ = e.board.LEDsOff()

	if len(missingSquares) == len(spuriousSquares) && len(missingSquares) > 0 {
		pairs := matchCorrectionPairs(spuriousSquares, missingSquares)
		for _, p := range pairs {
			_ = e.board.LEDFlash(p.from, p.to, board.FlashPulse)
		}
		return
	}

	for _, sq := range missingSquares {
		_ = e.board.LEDs([]chesscore.Square{sq}, 255)
	}
	for _, sq := range spuriousSquares {
		_ = e.board.LEDFlash(sq, sq, board.FlashBlink)
	}
}

type correctionPair struct {
	from, to chesscore.Square
}

// matchCorrectionPairs solves the minimum-cost assignment of spurious
// squares (where a piece sits but shouldn't) to missing squares (where a
// piece is expected but absent), using squared Euclidean board distance as
// cost. When multiple assignments share that minimum cost (a real
// scenario after a multi-piece takeback involving same-type pieces), the
// tie is broken by enumerating every optimal assignment and keeping the
// one whose target-square sequence (read in from's square order, which
// bitsOf already yields ascending) is lexicographically smallest — the
// Open Question spec.md §9 leaves unresolved, decided here. Enumeration
// is exhaustive over permutations, so it is only attempted up to
// maxExactTieBreak squares; above that, hungarian.Solve's own (arbitrary
// but still optimal-cost) solution is used as-is.
func matchCorrectionPairs(from, to []chesscore.Square) []correctionPair {
	n := len(from)
	cost := make([][]int, n)
	for i := range cost {
		cost[i] = make([]int, n)
		for j := range cost[i] {
			cost[i][j] = squareDistance(from[i], to[j])
		}
	}

	assignment, err := hungarian.Solve(cost)
	if err != nil {
		// Degenerate cost matrix (shouldn't happen for a square matrix);
		// fall back to index-order pairing rather than dropping guidance.
		assignment = make([]int, n)
		for i := range assignment {
			assignment[i] = i
		}
	} else if tied := lexSmallestOptimalAssignment(cost, to, assignmentCost(cost, assignment)); tied != nil {
		assignment = tied
	}

	pairs := make([]correctionPair, n)
	for i, j := range assignment {
		pairs[i] = correctionPair{from: from[i], to: to[j]}
	}
	return pairs
}

func assignmentCost(cost [][]int, assignment []int) int {
	total := 0
	for i, j := range assignment {
		total += cost[i][j]
	}
	return total
}

// maxExactTieBreak bounds the brute-force permutation search below to
// cases small enough to enumerate in microseconds; a correction event
// moving more pieces than this keeps hungarian.Solve's own solution.
const maxExactTieBreak = 8

// lexSmallestOptimalAssignment brute-forces every permutation of to-
// indices achieving exactly minCost and returns the one whose resulting
// target-square sequence is lexicographically smallest, or nil if n
// exceeds maxExactTieBreak.
func lexSmallestOptimalAssignment(cost [][]int, to []chesscore.Square, minCost int) []int {
	n := len(cost)
	if n == 0 || n > maxExactTieBreak {
		return nil
	}

	used := make([]bool, n)
	current := make([]int, n)
	var best, bestAssignment []int

	var recurse func(i, acc int)
	recurse = func(i, acc int) {
		if acc > minCost {
			return
		}
		if i == n {
			if acc != minCost {
				return
			}
			seq := make([]int, n)
			for k, j := range current {
				seq[k] = int(to[j])
			}
			if best == nil || lexLess(seq, best) {
				best = seq
				bestAssignment = append([]int(nil), current...)
			}
			return
		}
		for j := 0; j < n; j++ {
			if used[j] {
				continue
			}
			used[j] = true
			current[i] = j
			recurse(i+1, acc+cost[i][j])
			used[j] = false
		}
	}
	recurse(0, 0)
	return bestAssignment
}

func lexLess(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func squareDistance(a, b chesscore.Square) int {
	df := a.File() - b.File()
	dr := a.Rank() - b.Rank()
	return df*df + dr*dr
}

func bitsOf(bm chesscore.PiecePresenceBitmap) []chesscore.Square {
	var out []chesscore.Square
	for sq := chesscore.Square(0); sq < 64; sq++ {
		if bm.Has(sq) {
			out = append(out, sq)
		}
	}
	return out
}

// checkCorrectionConverged is called with e.mu held after a buffered place
// event while in correction mode; it re-reads the physical board and exits
// correction mode once it matches the expected bitmap, discarding any
// events buffered while fixing.
func (e *Engine) checkCorrectionConverged() {
	have, err := e.board.ReadBoardState()
	if err != nil {
		return
	}
	if have != e.expected {
		e.renderCorrectionGuidance(have)
		return
	}

	e.correctionMode = false
	e.bufferedDuringFix = nil
	_ = e.board.LEDsOff()
	if e.alerts.OnCorrectionEnd != nil {
		e.alerts.OnCorrectionEnd()
	}
}
