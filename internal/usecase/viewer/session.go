package viewer

import (
	"sync"

	"sgf_viewer/internal/domain/board"
	"sgf_viewer/internal/domain/sgf"
	"sgf_viewer/internal/usecase/navigation"
)

// Session is one opened record: the tree, the board projection and the
// navigator over them, plus the per-session presentation toggles that
// used to be viewer globals. The navigator requires exclusive access,
// so every method serializes on the session mutex: the websocket
// command loop and the polling HTTP endpoints may drive the same
// session concurrently.
type Session struct {
	ID       string
	RecordID string

	mu          sync.Mutex
	tree        *sgf.Tree
	board       *board.Board
	nav         *navigation.Navigator
	fullComment bool
}

func newSession(id string, recordID string, tree *sgf.Tree) *Session {
	b := board.New(tree.Info.BoardSize)
	return &Session{
		ID:       id,
		RecordID: recordID,
		tree:     tree,
		board:    b,
		nav:      navigation.New(tree, b),
	}
}

// Opened reports whether a record is loaded. Every navigation method is
// a safe no-op on an empty session.
func (s *Session) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav != nil
}

// canMove: no motion without a record or while the full screen comment
// is shown.
func (s *Session) canMove() bool {
	return s.nav != nil && !s.fullComment
}

func (s *Session) Forward() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canMove() {
		return false
	}
	return s.nav.Forward()
}

func (s *Session) Back() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canMove() {
		return false, nil
	}
	return s.nav.Back()
}

func (s *Session) VariationUp() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canMove() {
		return false, nil
	}
	return s.nav.VariationUp()
}

func (s *Session) VariationDown() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canMove() {
		return false, nil
	}
	return s.nav.VariationDown()
}

func (s *Session) JumpToMove(ply int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canMove() {
		return false, nil
	}
	return s.nav.JumpToMove(ply)
}

func (s *Session) NextEvent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canMove() {
		return false
	}
	return s.nav.NextEvent()
}

func (s *Session) PrevEvent() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canMove() {
		return false, nil
	}
	return s.nav.PrevEvent()
}

// SwitchFullComment toggles the full screen comment view. Only possible
// while the current node actually has a comment.
func (s *Session) SwitchFullComment() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nav == nil {
		return false
	}
	if !s.fullComment && s.nav.Comment() == "" {
		return false
	}
	s.fullComment = !s.fullComment
	return true
}

func (s *Session) FullComment() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullComment
}

func (s *Session) Info() (sgf.GameInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return sgf.GameInfo{}, false
	}
	return s.tree.Info, true
}

func (s *Session) MarkDrawn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nav != nil {
		s.nav.MarkDrawn()
	}
}

// VariationEntry describes one node of the cursor's variation chain,
// enough for a client to draw the variation window.
type VariationEntry struct {
	Rank       int            `json:"rank"`
	Ply        int            `json:"ply"`
	Color      sgf.StoneColor `json:"color"`
	HasComment bool           `json:"has_comment"`
	Current    bool           `json:"current"`
}

// State is the full redraw payload for the presentation layer.
type State struct {
	MoveNumber     int                `json:"move_number"`
	BoardSize      int                `json:"board_size"`
	Board          [][]sgf.StoneColor `json:"board"`
	Markers        []board.Marker     `json:"markers"`
	CapturedBlack  int                `json:"captured_black"`
	CapturedWhite  int                `json:"captured_white"`
	Comment        string             `json:"comment"`
	CommentChanged bool               `json:"comment_changed"`
	FullComment    bool               `json:"full_comment"`
	Variations     []VariationEntry   `json:"variations"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nav == nil {
		return State{}
	}
	capB, capW := s.board.Captured()
	st := State{
		MoveNumber:     s.nav.MoveNumber(),
		BoardSize:      s.board.Size(),
		Board:          s.board.Grid(),
		Markers:        s.board.Markers(),
		CapturedBlack:  capB,
		CapturedWhite:  capW,
		Comment:        s.nav.Comment(),
		CommentChanged: s.nav.CommentChanged(),
		FullComment:    s.fullComment,
	}

	cur := s.nav.Current()
	for v := cur.VarChainHead(); v != nil; v = v.NextVar {
		st.Variations = append(st.Variations, VariationEntry{
			Rank:       v.RenderRank,
			Ply:        v.PlyIndex,
			Color:      moveColor(v),
			HasComment: v.HasAnnotation(),
			Current:    v == cur,
		})
	}
	return st
}

func moveColor(n *sgf.Node) sgf.StoneColor {
	for _, cmd := range n.Commands {
		if cmd.Kind == sgf.CmdPlayStone {
			return cmd.Color
		}
	}
	return sgf.ColorNone
}
