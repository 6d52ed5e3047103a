package sgf

// GameTree представляет одно дерево в SGF (последовательность узлов + варианты)
type GameTree struct {
	Nodes    []RawNode   // Последовательность узлов (основная линия)
	Children []*GameTree // Варианты (вариативные линии)
}

// RawNode represents one node of the SGF text (a property set such as B[pd], W[dd], C[...])
type RawNode struct {
	Properties map[string][]string // Properties may repeat (e.g. AB[aa][bb])
}

// StoneColor is the colour of a stone placed by a command.
type StoneColor int

const (
	ColorNone StoneColor = iota
	ColorBlack
	ColorWhite
)

// MarkerKind is a board marker (SQ, CR, TR properties).
type MarkerKind int

const (
	MarkSquare MarkerKind = iota
	MarkCircle
	MarkTriangle
)

// CommandKind distinguishes setup stones, played moves and markers.
type CommandKind int

const (
	CmdAddStone    CommandKind = iota // setup stone (AB/AW), no capture resolution
	CmdPlayStone                      // played move (B/W), resolves captures
	CmdPlaceMarker                    // board marker (SQ/CR/TR)
)

// Point is a zero-based board coordinate.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Command is one board instruction carried by a node.
type Command struct {
	Kind   CommandKind
	Color  StoneColor
	Marker MarkerKind
	Point  Point
	Pass   bool // pass move: no board mutation, but still one undo frame
}

// Node is one position of the record tree. The tree is built once by the
// parser and never mutated during navigation.
type Node struct {
	Commands   []Command
	Annotation string // C property, empty if none
	PlyIndex   int    // distance from the root
	RenderRank int    // variation level, used for up/down cycling and layout
	Parent     *Node
	MainChild  *Node // main continuation
	PrevVar    *Node // previous variation at this position
	NextVar    *Node // next variation at this position
}

// HasAnnotation reports whether the node carries a comment.
func (n *Node) HasAnnotation() bool {
	return n.Annotation != ""
}

// IsBranchPoint reports whether more than one continuation exists at this
// node's position, i.e. its variation chain has more than one node.
func (n *Node) IsBranchPoint() bool {
	return n.PrevVar != nil || n.NextVar != nil
}

// VarChainHead walks to the first node of the variation chain.
func (n *Node) VarChainHead() *Node {
	head := n
	for head.PrevVar != nil {
		head = head.PrevVar
	}
	return head
}

// GameInfo holds the header properties of the record root.
type GameInfo struct {
	BlackName string `json:"black_name"`
	BlackRank string `json:"black_rank"`
	WhiteName string `json:"white_name"`
	WhiteRank string `json:"white_rank"`
	BoardSize int    `json:"board_size"`
	Komi      string `json:"komi"`
	Handicap  int    `json:"handicap"`
	Date      string `json:"date"`
	Result    string `json:"result"`
	TimeSec   int    `json:"time_sec"`
	Overtime  string `json:"overtime"`
	Ruleset   string `json:"ruleset"`
}

// Tree is a fully parsed, immutable record.
type Tree struct {
	Root *Node
	Info GameInfo
}
