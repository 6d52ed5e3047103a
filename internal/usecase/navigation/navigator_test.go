package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgf_viewer/internal/domain/board"
	"sgf_viewer/internal/domain/sgf"
)

// recordingBoard wraps the real projection and counts primitive calls,
// so tests can assert the exact apply/undo cost of an operation.
type recordingBoard struct {
	inner   *board.Board
	applies int
	undos   int
}

func (r *recordingBoard) Apply(n *sgf.Node) {
	r.applies++
	r.inner.Apply(n)
}

func (r *recordingBoard) Undo() bool {
	r.undos++
	return r.inner.Undo()
}

func (r *recordingBoard) Reset() {
	r.inner.Reset()
}

func (r *recordingBoard) resetCounts() {
	r.applies = 0
	r.undos = 0
}

func newNav(t *testing.T, src string) (*Navigator, *recordingBoard) {
	t.Helper()
	tree, err := sgf.Parse(src)
	require.NoError(t, err)
	rb := &recordingBoard{inner: board.New(tree.Info.BoardSize)}
	nav := New(tree, rb)
	rb.resetCounts()
	return nav, rb
}

// pathGrid rebuilds the expected projection by applying the commands of
// every node on the root-to-cursor path, in order, on a fresh board.
func pathGrid(size int, cur *sgf.Node) [][]sgf.StoneColor {
	var path []*sgf.Node
	for n := cur; n != nil; n = n.Parent {
		path = append(path, n)
	}
	b := board.New(size)
	for i := len(path) - 1; i >= 0; i-- {
		b.Apply(path[i])
	}
	return b.Grid()
}

func TestForwardWalksMainLine(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa];W[bb])")

	require.True(t, nav.Forward())
	assert.Equal(t, 1, nav.MoveNumber())
	assert.Equal(t, sgf.ColorBlack, rb.inner.Cell(sgf.Point{Row: 0, Col: 0}))

	require.True(t, nav.Forward())
	assert.Equal(t, 2, nav.MoveNumber())
	assert.Equal(t, sgf.ColorWhite, rb.inner.Cell(sgf.Point{Row: 1, Col: 1}))

	// leaf reached: no-op
	assert.False(t, nav.Forward())
	assert.Equal(t, 2, nav.MoveNumber())
	assert.Equal(t, 2, rb.applies)
}

func TestBackUndoesOneNode(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa];W[bb])")
	nav.Forward()
	nav.Forward()

	ok, err := nav.Back()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, nav.MoveNumber())
	assert.Equal(t, sgf.ColorBlack, rb.inner.Cell(sgf.Point{Row: 0, Col: 0}))
	assert.Equal(t, sgf.ColorNone, rb.inner.Cell(sgf.Point{Row: 1, Col: 1}))
}

func TestBackAtRootIsNoop(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa])")

	ok, err := nav.Back()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, rb.undos)
	assert.Equal(t, 0, nav.MoveNumber())
}

func TestForwardBackRoundTrip(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa];W[bb])")
	nav.Forward()
	before := rb.inner.Grid()
	cur := nav.Current()

	require.True(t, nav.Forward())
	ok, err := nav.Back()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Same(t, cur, nav.Current())
	assert.Equal(t, before, rb.inner.Grid())
}

func TestVariationDownCostsOneUndoOneApply(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa](;W[bb])(;W[cc]))")
	nav.Forward()
	nav.Forward()
	require.Equal(t, 2, nav.MoveNumber())
	rb.resetCounts()

	ok, err := nav.VariationDown()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, rb.undos)
	assert.Equal(t, 1, rb.applies)
	assert.Equal(t, 2, nav.MoveNumber())
	assert.Equal(t, sgf.ColorWhite, rb.inner.Cell(sgf.Point{Row: 2, Col: 2}))
	assert.Equal(t, sgf.ColorNone, rb.inner.Cell(sgf.Point{Row: 1, Col: 1}))
	assert.Equal(t, pathGrid(9, nav.Current()), rb.inner.Grid())
}

func TestVariationRoundTripRestoresProjection(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa](;W[bb];B[cc])(;W[dd]))")
	nav.Forward()
	nav.Forward()
	start := nav.Current()
	before := rb.inner.Grid()

	ok, err := nav.VariationDown()
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = nav.VariationUp()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Same(t, start, nav.Current())
	assert.Equal(t, before, rb.inner.Grid())
}

func TestVariationBoundaries(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa](;W[bb])(;W[cc]))")
	nav.Forward()
	nav.Forward()
	rb.resetCounts()

	// main continuation has the lowest rank: nothing above it
	ok, err := nav.VariationUp()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, rb.applies)
	assert.Zero(t, rb.undos)

	_, err = nav.VariationDown()
	require.NoError(t, err)

	// now at the last variation: nothing below
	ok, err = nav.VariationDown()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVariationCyclingOrder(t *testing.T) {
	nav, _ := newNav(t, "(;SZ[9];B[aa](;W[bb])(;W[cc])(;W[dd]))")
	nav.Forward()
	nav.Forward()
	v1 := nav.Current()

	ok, err := nav.VariationDown()
	require.NoError(t, err)
	require.True(t, ok)
	v2 := nav.Current()
	assert.Greater(t, v2.RenderRank, v1.RenderRank)

	ok, err = nav.VariationDown()
	require.NoError(t, err)
	require.True(t, ok)
	v3 := nav.Current()
	assert.Greater(t, v3.RenderRank, v2.RenderRank)

	ok, err = nav.VariationUp()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, v2, nav.Current())
}

func TestSwitchVariationToSelfIsNoop(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa](;W[bb])(;W[cc]))")
	nav.Forward()
	nav.Forward()
	rb.resetCounts()

	require.NoError(t, nav.SwitchVariation(nav.Current()))
	assert.Zero(t, rb.applies)
	assert.Zero(t, rb.undos)
}

func TestSwitchVariationRejectsForeignNode(t *testing.T) {
	nav, _ := newNav(t, "(;SZ[9];B[aa](;W[bb])(;W[cc]))")
	root := nav.Current()
	nav.Forward()
	nav.Forward()

	err := nav.SwitchVariation(root)
	assert.ErrorIs(t, err, ErrNotInChain)
}

func TestJumpToMove(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa];W[bb];B[cc];W[dd];B[ee])")

	ok, err := nav.JumpToMove(5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, nav.MoveNumber())
	assert.Equal(t, 5, rb.applies)

	rb.resetCounts()
	ok, err = nav.JumpToMove(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, rb.undos)
	assert.Zero(t, rb.applies)

	// already there: zero primitive calls
	rb.resetCounts()
	ok, err = nav.JumpToMove(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, rb.applies)
	assert.Zero(t, rb.undos)
}

func TestJumpPastEndStopsAtLeaf(t *testing.T) {
	nav, _ := newNav(t, "(;SZ[9];B[aa];W[bb])")

	ok, err := nav.JumpToMove(42)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, nav.MoveNumber())
}

func TestNextEventStopsAtComment(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa];W[bb];B[cc]C[stop];W[dd])")

	require.True(t, nav.NextEvent())
	assert.Equal(t, 3, nav.MoveNumber())
	assert.Equal(t, "stop", nav.Comment())
	assert.Equal(t, 3, rb.applies)
	assert.Zero(t, rb.undos)
}

func TestNextEventStopsAtBranchPoint(t *testing.T) {
	nav, rb := newNav(t, "(;SZ[9];B[aa];W[bb](;B[cc])(;B[dd]))")

	require.True(t, nav.NextEvent())
	assert.Equal(t, 3, nav.MoveNumber())
	assert.True(t, nav.Current().IsBranchPoint())
	assert.Equal(t, 3, rb.applies)
}

func TestNextEventAtLeaf(t *testing.T) {
	nav, _ := newNav(t, "(;SZ[9];B[aa])")
	nav.Forward()

	assert.False(t, nav.NextEvent())
	assert.Equal(t, 1, nav.MoveNumber())
}

func TestPrevEventStopsAtComment(t *testing.T) {
	nav, _ := newNav(t, "(;SZ[9];B[aa];W[bb];B[cc]C[stop];W[dd])")
	_, err := nav.JumpToMove(4)
	require.NoError(t, err)

	ok, err := nav.PrevEvent()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, nav.MoveNumber())
	assert.Equal(t, "stop", nav.Comment())
}

func TestPrevEventRunsToRoot(t *testing.T) {
	nav, _ := newNav(t, "(;SZ[9];B[aa];W[bb];B[cc])")
	_, err := nav.JumpToMove(3)
	require.NoError(t, err)

	ok, err := nav.PrevEvent()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, nav.MoveNumber())

	// at the root: nothing left to step back to
	ok, err = nav.PrevEvent()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommentCache(t *testing.T) {
	nav, _ := newNav(t, "(;SZ[9]C[hello];B[aa];W[bb]C[yo];B[cc])")
	assert.Equal(t, "hello", nav.Comment())
	assert.True(t, nav.CommentChanged())
	nav.MarkDrawn()

	// comment disappears: dirty
	nav.Forward()
	assert.Equal(t, "", nav.Comment())
	assert.True(t, nav.CommentChanged())

	nav.Forward()
	assert.Equal(t, "yo", nav.Comment())
	assert.True(t, nav.CommentChanged())

	// back and forth between the same comment keeps the cache clean
	nav.Forward()
	assert.True(t, nav.CommentChanged())
	_, err := nav.Back()
	require.NoError(t, err)
	assert.Equal(t, "yo", nav.Comment())
	assert.True(t, nav.CommentChanged())
}

func TestCommentCacheUnchangedBetweenPlainNodes(t *testing.T) {
	nav, _ := newNav(t, "(;SZ[9];B[aa];W[bb])")
	nav.MarkDrawn()

	nav.Forward()
	assert.False(t, nav.CommentChanged())
	nav.Forward()
	assert.False(t, nav.CommentChanged())
}

func TestPositionChangedFlag(t *testing.T) {
	nav, _ := newNav(t, "(;SZ[9];B[aa])")
	nav.MarkDrawn()
	assert.False(t, nav.PositionChanged())

	nav.Forward()
	assert.True(t, nav.PositionChanged())
	nav.MarkDrawn()

	// boundary no-op does not move the cursor
	nav.Forward()
	assert.False(t, nav.PositionChanged())
}

// Every operation must leave the projection equal to the cumulative
// commands of the root-to-cursor path.
func TestProjectionConsistency(t *testing.T) {
	src := "(;SZ[9]AB[ee];B[aa];W[bb](;B[cc];W[dd])(;B[dc])(;B[gg]C[side]))"
	nav, rb := newNav(t, src)

	check := func() {
		t.Helper()
		assert.Equal(t, pathGrid(9, nav.Current()), rb.inner.Grid())
	}

	nav.Forward()
	check()
	nav.Forward()
	check()
	nav.NextEvent()
	check()
	_, err := nav.VariationDown()
	require.NoError(t, err)
	check()
	_, err = nav.VariationDown()
	require.NoError(t, err)
	check()
	_, err = nav.VariationUp()
	require.NoError(t, err)
	check()
	_, err = nav.JumpToMove(1)
	require.NoError(t, err)
	check()
	_, err = nav.JumpToMove(4)
	require.NoError(t, err)
	check()
	_, err = nav.PrevEvent()
	require.NoError(t, err)
	check()
	_, err = nav.JumpToMove(0)
	require.NoError(t, err)
	check()
}

// brokenBoard loses its undo frames: stepping back must surface the
// desync instead of moving the cursor.
type brokenBoard struct{}

func (brokenBoard) Apply(*sgf.Node) {}
func (brokenBoard) Undo() bool      { return false }
func (brokenBoard) Reset()          {}

func TestBackReportsDesyncedProjection(t *testing.T) {
	tree, err := sgf.Parse("(;SZ[9];B[aa])")
	require.NoError(t, err)
	nav := New(tree, brokenBoard{})
	require.True(t, nav.Forward())

	ok, err := nav.Back()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrProjectionDesync)
	// the cursor must not move on a structural violation
	assert.Equal(t, 1, nav.MoveNumber())
}

func TestVariationSwitchReportsDesyncedProjection(t *testing.T) {
	tree, err := sgf.Parse("(;SZ[9];B[aa](;W[bb])(;W[cc]))")
	require.NoError(t, err)
	nav := New(tree, brokenBoard{})
	nav.Forward()
	nav.Forward()

	_, err = nav.VariationDown()
	assert.ErrorIs(t, err, ErrProjectionDesync)
}
