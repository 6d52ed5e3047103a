package board

import (
	"sgf_viewer/internal/domain/sgf"
)

// Board is the incremental projection of the record cursor. It only
// supports two primitives: Apply one node's commands (pushing exactly
// one undo frame, even when the node carries no commands) and Undo the
// last applied node. The navigator owns the board exclusively.
type Board struct {
	size          int
	cells         [][]sgf.StoneColor
	markers       map[sgf.Point]sgf.MarkerKind
	capturedBlack int // black stones removed by white
	capturedWhite int // white stones removed by black
	history       []frame
}

// frame records everything one Apply changed, in mutation order.
type frame struct {
	cells         []cellChange
	markers       []markerChange
	capturedBlack int
	capturedWhite int
}

type cellChange struct {
	pt   sgf.Point
	prev sgf.StoneColor
}

type markerChange struct {
	pt   sgf.Point
	prev sgf.MarkerKind
	had  bool
}

// Marker is an exported marker position for state snapshots.
type Marker struct {
	Point sgf.Point      `json:"point"`
	Kind  sgf.MarkerKind `json:"kind"`
}

func New(size int) *Board {
	b := &Board{size: size}
	b.Reset()
	return b
}

// Reset clears the board, the markers and the whole undo history.
func (b *Board) Reset() {
	b.cells = make([][]sgf.StoneColor, b.size)
	for i := range b.cells {
		b.cells[i] = make([]sgf.StoneColor, b.size)
	}
	b.markers = make(map[sgf.Point]sgf.MarkerKind)
	b.capturedBlack = 0
	b.capturedWhite = 0
	b.history = nil
}

// Apply executes all commands of the node and pushes one undo frame.
func (b *Board) Apply(n *sgf.Node) {
	f := frame{
		capturedBlack: b.capturedBlack,
		capturedWhite: b.capturedWhite,
	}

	for _, cmd := range n.Commands {
		switch cmd.Kind {
		case sgf.CmdAddStone:
			b.setCell(&f, cmd.Point, cmd.Color)
		case sgf.CmdPlayStone:
			if !cmd.Pass {
				b.playStone(&f, cmd.Point, cmd.Color)
			}
		case sgf.CmdPlaceMarker:
			b.placeMarker(&f, cmd.Point, cmd.Marker)
		}
	}

	b.history = append(b.history, f)
}

// Undo pops the last frame and restores the prior board state. Returns
// false if there is nothing to undo.
func (b *Board) Undo() bool {
	if len(b.history) == 0 {
		return false
	}
	f := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]

	for i := len(f.cells) - 1; i >= 0; i-- {
		c := f.cells[i]
		b.cells[c.pt.Row][c.pt.Col] = c.prev
	}
	for i := len(f.markers) - 1; i >= 0; i-- {
		m := f.markers[i]
		if m.had {
			b.markers[m.pt] = m.prev
		} else {
			delete(b.markers, m.pt)
		}
	}
	b.capturedBlack = f.capturedBlack
	b.capturedWhite = f.capturedWhite
	return true
}

func (b *Board) Size() int {
	return b.size
}

func (b *Board) Cell(pt sgf.Point) sgf.StoneColor {
	return b.cells[pt.Row][pt.Col]
}

// Captured returns the numbers of captured black and white stones.
func (b *Board) Captured() (black, white int) {
	return b.capturedBlack, b.capturedWhite
}

// Grid returns a copy of the current stone layout.
func (b *Board) Grid() [][]sgf.StoneColor {
	grid := make([][]sgf.StoneColor, b.size)
	for i := range b.cells {
		grid[i] = make([]sgf.StoneColor, b.size)
		copy(grid[i], b.cells[i])
	}
	return grid
}

// Markers returns the markers currently on the board.
func (b *Board) Markers() []Marker {
	out := make([]Marker, 0, len(b.markers))
	for pt, kind := range b.markers {
		out = append(out, Marker{Point: pt, Kind: kind})
	}
	return out
}

/* ----------------------------- mutations ------------------------------ */

func (b *Board) setCell(f *frame, pt sgf.Point, v sgf.StoneColor) {
	f.cells = append(f.cells, cellChange{pt: pt, prev: b.cells[pt.Row][pt.Col]})
	b.cells[pt.Row][pt.Col] = v
}

func (b *Board) placeMarker(f *frame, pt sgf.Point, kind sgf.MarkerKind) {
	prev, had := b.markers[pt]
	f.markers = append(f.markers, markerChange{pt: pt, prev: prev, had: had})
	b.markers[pt] = kind
}

// playStone places a move stone and resolves captures: opponent groups
// left without liberties are removed, then an own group without
// liberties (suicide under some rulesets) is removed as well.
func (b *Board) playStone(f *frame, pt sgf.Point, color sgf.StoneColor) {
	b.setCell(f, pt, color)

	opponent := sgf.ColorWhite
	if color == sgf.ColorWhite {
		opponent = sgf.ColorBlack
	}

	for _, nb := range b.neighbors(pt) {
		if b.cells[nb.Row][nb.Col] == opponent {
			group := b.collectGroup(nb)
			if !b.hasLiberty(group) {
				b.removeGroup(f, group, opponent)
			}
		}
	}

	own := b.collectGroup(pt)
	if !b.hasLiberty(own) {
		b.removeGroup(f, own, color)
	}
}

func (b *Board) removeGroup(f *frame, group []sgf.Point, color sgf.StoneColor) {
	for _, pt := range group {
		b.setCell(f, pt, sgf.ColorNone)
	}
	if color == sgf.ColorBlack {
		b.capturedBlack += len(group)
	} else {
		b.capturedWhite += len(group)
	}
}

func (b *Board) neighbors(pt sgf.Point) []sgf.Point {
	nbs := make([]sgf.Point, 0, 4)
	if pt.Row > 0 {
		nbs = append(nbs, sgf.Point{Row: pt.Row - 1, Col: pt.Col})
	}
	if pt.Row < b.size-1 {
		nbs = append(nbs, sgf.Point{Row: pt.Row + 1, Col: pt.Col})
	}
	if pt.Col > 0 {
		nbs = append(nbs, sgf.Point{Row: pt.Row, Col: pt.Col - 1})
	}
	if pt.Col < b.size-1 {
		nbs = append(nbs, sgf.Point{Row: pt.Row, Col: pt.Col + 1})
	}
	return nbs
}

// collectGroup flood-fills the group of same-coloured stones containing pt.
func (b *Board) collectGroup(pt sgf.Point) []sgf.Point {
	color := b.cells[pt.Row][pt.Col]
	if color == sgf.ColorNone {
		return nil
	}
	visited := map[sgf.Point]bool{pt: true}
	stack := []sgf.Point{pt}
	var group []sgf.Point
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group = append(group, cur)
		for _, nb := range b.neighbors(cur) {
			if !visited[nb] && b.cells[nb.Row][nb.Col] == color {
				visited[nb] = true
				stack = append(stack, nb)
			}
		}
	}
	return group
}

func (b *Board) hasLiberty(group []sgf.Point) bool {
	for _, pt := range group {
		for _, nb := range b.neighbors(pt) {
			if b.cells[nb.Row][nb.Col] == sgf.ColorNone {
				return true
			}
		}
	}
	return false
}
