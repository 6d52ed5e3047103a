package navigation

import (
	"errors"

	"sgf_viewer/internal/domain/sgf"
)

// BoardProjection is the state machine the navigator keeps consistent
// with the cursor. It offers no random access: any repositioning has to
// be expressed as a sequence of Apply and Undo calls.
type BoardProjection interface {
	Apply(n *sgf.Node)
	Undo() bool
	Reset()
}

// Structural violations: these indicate a broken tree or projection
// contract, never a user-facing condition. Callers must drop the
// session instead of continuing with an inconsistent cursor.
var (
	ErrProjectionDesync = errors.New("board projection out of sync with record tree")
	ErrNoCommonAncestor = errors.New("variation switch walk found no common ancestor")
	ErrNotInChain       = errors.New("target node is not in the current variation chain")
)

// Navigator owns the cursor over a record tree and the board projection
// tied to it. Invariant: the projection state always equals the commands
// of the root-to-cursor path, applied in order.
type Navigator struct {
	tree  *sgf.Tree
	board BoardProjection
	cur   *sgf.Node

	comment       string
	commentDirty  bool
	positionDirty bool
}

// New resets the projection, brings it to the root's state with one
// initial apply and places the cursor on the root.
func New(tree *sgf.Tree, board BoardProjection) *Navigator {
	board.Reset()
	board.Apply(tree.Root)
	n := &Navigator{tree: tree, board: board, cur: tree.Root}
	n.comment = tree.Root.Annotation
	n.commentDirty = true
	n.positionDirty = true
	return n
}

func (n *Navigator) Current() *sgf.Node {
	return n.cur
}

// MoveNumber is the ply index of the cursor.
func (n *Navigator) MoveNumber() int {
	return n.cur.PlyIndex
}

func (n *Navigator) Comment() string {
	return n.comment
}

// CommentChanged reports whether the comment area needs a redraw.
func (n *Navigator) CommentChanged() bool {
	return n.commentDirty
}

// PositionChanged reports whether the cursor moved since the last
// MarkDrawn call.
func (n *Navigator) PositionChanged() bool {
	return n.positionDirty
}

// MarkDrawn is called by the presentation layer once it has consumed
// the current state.
func (n *Navigator) MarkDrawn() {
	n.commentDirty = false
	n.positionDirty = false
}

// Forward steps to the main continuation. Returns false at a leaf.
func (n *Navigator) Forward() bool {
	ok := n.stepForward()
	n.refreshComment()
	return ok
}

// Back steps to the parent. Returns false at the root; an error means
// the projection lost frames it should still have.
func (n *Navigator) Back() (bool, error) {
	ok, err := n.stepBack()
	n.refreshComment()
	return ok, err
}

// SwitchVariation repositions the cursor to any node of the current
// variation chain, undoing up to the common ancestor and replaying down
// to target. No-op when target is the cursor itself.
func (n *Navigator) SwitchVariation(target *sgf.Node) error {
	if target == n.cur {
		return nil
	}
	if !n.inCurrentChain(target) {
		return ErrNotInChain
	}
	if err := n.switchTo(target); err != nil {
		return err
	}
	n.refreshComment()
	return nil
}

// VariationDown moves to the chain neighbor with the smallest render
// rank strictly greater than the cursor's, i.e. the variation drawn
// right below it. Returns false when no such neighbor exists.
func (n *Navigator) VariationDown() (bool, error) {
	var target *sgf.Node
	for v := n.cur.VarChainHead(); v != nil; v = v.NextVar {
		if v.RenderRank > n.cur.RenderRank && (target == nil || v.RenderRank < target.RenderRank) {
			target = v
		}
	}
	return n.moveToNeighbor(target)
}

// VariationUp moves to the chain neighbor with the largest render rank
// strictly less than the cursor's.
func (n *Navigator) VariationUp() (bool, error) {
	var target *sgf.Node
	for v := n.cur.VarChainHead(); v != nil; v = v.NextVar {
		if v.RenderRank < n.cur.RenderRank && (target == nil || v.RenderRank > target.RenderRank) {
			target = v
		}
	}
	return n.moveToNeighbor(target)
}

func (n *Navigator) moveToNeighbor(target *sgf.Node) (bool, error) {
	if target == nil {
		return false, nil
	}
	if err := n.switchTo(target); err != nil {
		return false, err
	}
	n.refreshComment()
	return true, nil
}

// JumpToMove walks the cursor to the given ply, one primitive call per
// step. Deliberately linear: the projection has no seek. Returns whether
// the exact ply was reached; calling it again with the same target
// performs no primitive calls at all.
func (n *Navigator) JumpToMove(targetPly int) (bool, error) {
	for targetPly < n.cur.PlyIndex {
		ok, err := n.stepBack()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
	}
	for targetPly > n.cur.PlyIndex {
		if !n.stepForward() {
			break
		}
	}
	n.refreshComment()
	return n.cur.PlyIndex == targetPly, nil
}

// NextEvent steps forward once, then keeps going until it reaches a
// node carrying a comment, a branch point, or the end of the line.
// Returns false if the cursor did not move at all.
func (n *Navigator) NextEvent() bool {
	if !n.stepForward() {
		n.refreshComment()
		return false
	}
	for n.cur.MainChild != nil && !n.cur.IsBranchPoint() && !n.cur.HasAnnotation() {
		n.stepForward()
	}
	n.refreshComment()
	return true
}

// PrevEvent is the backward counterpart of NextEvent, stopping at the
// root, a commented node or a branch point.
func (n *Navigator) PrevEvent() (bool, error) {
	ok, err := n.stepBack()
	if err != nil || !ok {
		n.refreshComment()
		return false, err
	}
	for n.cur.Parent != nil && !n.cur.IsBranchPoint() && !n.cur.HasAnnotation() {
		if _, err := n.stepBack(); err != nil {
			return false, err
		}
	}
	n.refreshComment()
	return true, nil
}

/* --------------------------- step primitives -------------------------- */

// stepForward and stepBack deliberately skip the comment refresh; the
// composite operations built on top of them refresh once at the end, so
// intermediate positions never become observable.

func (n *Navigator) stepForward() bool {
	child := n.cur.MainChild
	if child == nil {
		return false
	}
	n.board.Apply(child)
	n.cur = child
	n.positionDirty = true
	return true
}

func (n *Navigator) stepBack() (bool, error) {
	if n.cur.Parent == nil {
		return false, nil
	}
	if !n.board.Undo() {
		return false, ErrProjectionDesync
	}
	n.cur = n.cur.Parent
	n.positionDirty = true
	return true, nil
}

/* ------------------------- variation switching ------------------------ */

// switchTo walks cursor and target upward in lock-step until both
// reference the same ancestor, undoing the cursor side and recording the
// target side on a replay stack, then applies the stack back down.
// The lock-step ascent is only correct because variation chain members
// share the same ply; that is validated at parse time.
func (n *Navigator) switchTo(target *sgf.Node) error {
	src, dst := n.cur, target
	var replay []*sgf.Node // youngest first
	for src != dst {
		if src.Parent == nil || dst.Parent == nil {
			return ErrNoCommonAncestor
		}
		if !n.board.Undo() {
			return ErrProjectionDesync
		}
		n.cur = src.Parent
		replay = append(replay, dst)
		src = src.Parent
		dst = dst.Parent
	}
	for i := len(replay) - 1; i >= 0; i-- {
		n.board.Apply(replay[i])
		n.cur = replay[i]
	}
	n.positionDirty = true
	return nil
}

func (n *Navigator) inCurrentChain(target *sgf.Node) bool {
	for v := n.cur.VarChainHead(); v != nil; v = v.NextVar {
		if v == target {
			return true
		}
	}
	return false
}

/* ---------------------------- comment cache --------------------------- */

// refreshComment recomputes the cached annotation. The dirty flag is
// only raised on an actual change, so the comment area is not redrawn
// when the cursor moves between nodes with the same (or no) comment.
func (n *Navigator) refreshComment() {
	if n.comment == n.cur.Annotation {
		n.commentDirty = false
		return
	}
	n.comment = n.cur.Annotation
	n.commentDirty = true
}
