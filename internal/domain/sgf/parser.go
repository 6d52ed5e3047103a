package sgf

import (
	"fmt"
	"strconv"
	"strings"
)

const DefaultBoardSize = 19

// MaxBoardSize is the largest board the coordinate encoding can
// express (a-z plus A-Z).
const MaxBoardSize = 52

const strUnknown = "unknown"

// Parse reads SGF text and builds the immutable record tree. The whole
// tree is constructed atomically: any format error leaves no partial
// result. Only the first game of a collection is read.
func Parse(text string) (*Tree, error) {
	p := &parser{src: text}
	p.skipSpace()
	gt, err := p.parseGameTree()
	if err != nil {
		return nil, err
	}
	if len(gt.Nodes) == 0 {
		return nil, fmt.Errorf("sgf: game tree has no root node")
	}

	info := readGameInfo(gt.Nodes[0])
	if info.BoardSize < 1 || info.BoardSize > MaxBoardSize {
		return nil, fmt.Errorf("sgf: board size %d out of range", info.BoardSize)
	}

	b := &builder{size: info.BoardSize}
	root, err := b.buildSequence(gt, nil)
	if err != nil {
		return nil, err
	}

	next := 1
	assignRenderRanks(root, &next)

	if err := validateTree(root); err != nil {
		return nil, err
	}

	return &Tree{Root: root, Info: info}, nil
}

/* ---------------------------- text parsing ---------------------------- */

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseGameTree() (*GameTree, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return nil, fmt.Errorf("sgf: expected '(' at offset %d", p.pos)
	}
	p.pos++

	gt := &GameTree{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("sgf: unexpected end of input, unclosed game tree")
		}
		switch p.src[p.pos] {
		case ';':
			p.pos++
			node, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			gt.Nodes = append(gt.Nodes, node)
		case '(':
			child, err := p.parseGameTree()
			if err != nil {
				return nil, err
			}
			gt.Children = append(gt.Children, child)
		case ')':
			p.pos++
			return gt, nil
		default:
			return nil, fmt.Errorf("sgf: unexpected character %q at offset %d", p.src[p.pos], p.pos)
		}
	}
}

func (p *parser) parseNode() (RawNode, error) {
	node := RawNode{Properties: make(map[string][]string)}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || !isLetter(p.src[p.pos]) {
			return node, nil
		}
		ident, values, err := p.parseProperty()
		if err != nil {
			return RawNode{}, err
		}
		node.Properties[ident] = append(node.Properties[ident], values...)
	}
}

func (p *parser) parseProperty() (string, []string, error) {
	var ident strings.Builder
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) {
		// lowercase letters in identifiers are ignored (FF[3] compatibility)
		if p.src[p.pos] >= 'A' && p.src[p.pos] <= 'Z' {
			ident.WriteByte(p.src[p.pos])
		}
		p.pos++
	}
	p.skipSpace()

	if p.pos >= len(p.src) || p.src[p.pos] != '[' {
		return "", nil, fmt.Errorf("sgf: property %q has no value at offset %d", ident.String(), p.pos)
	}

	var values []string
	for p.pos < len(p.src) && p.src[p.pos] == '[' {
		p.pos++
		var val strings.Builder
		for {
			if p.pos >= len(p.src) {
				return "", nil, fmt.Errorf("sgf: unterminated property value")
			}
			c := p.src[p.pos]
			if c == '\\' && p.pos+1 < len(p.src) {
				p.pos++
				val.WriteByte(p.src[p.pos])
				p.pos++
				continue
			}
			if c == ']' {
				p.pos++
				break
			}
			val.WriteByte(c)
			p.pos++
		}
		values = append(values, val.String())
		p.skipSpace()
	}
	return ident.String(), values, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

/* ---------------------------- tree building --------------------------- */

type builder struct {
	size int
}

// buildSequence converts one GameTree: the node sequence becomes a main
// line hanging off parent, subtree heads become the variation chain of
// the last sequence node. Returns the head of the built sequence; the
// caller links it in.
func (b *builder) buildSequence(gt *GameTree, parent *Node) (*Node, error) {
	if len(gt.Nodes) == 0 {
		return nil, fmt.Errorf("sgf: empty game tree")
	}

	prev := parent
	var head *Node
	for i := range gt.Nodes {
		n, err := b.makeNode(gt.Nodes[i], prev)
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = n
		} else {
			prev.MainChild = n
		}
		prev = n
	}

	var prevVar *Node
	for _, child := range gt.Children {
		childHead, err := b.buildSequence(child, prev)
		if err != nil {
			return nil, err
		}
		if prevVar == nil {
			prev.MainChild = childHead
		} else {
			prevVar.NextVar = childHead
			childHead.PrevVar = prevVar
		}
		prevVar = childHead
	}

	return head, nil
}

func (b *builder) makeNode(raw RawNode, parent *Node) (*Node, error) {
	n := &Node{Parent: parent}
	if parent != nil {
		n.PlyIndex = parent.PlyIndex + 1
	}

	if c, ok := raw.Properties["C"]; ok && len(c) > 0 {
		n.Annotation = c[0]
	}

	type stoneProp struct {
		key   string
		kind  CommandKind
		color StoneColor
	}
	for _, sp := range []stoneProp{
		{"AB", CmdAddStone, ColorBlack},
		{"AW", CmdAddStone, ColorWhite},
		{"B", CmdPlayStone, ColorBlack},
		{"W", CmdPlayStone, ColorWhite},
	} {
		for _, val := range raw.Properties[sp.key] {
			cmd := Command{Kind: sp.kind, Color: sp.color}
			if sp.kind == CmdPlayStone && isPassValue(val, b.size) {
				cmd.Pass = true
			} else {
				pt, err := b.decodePoint(val)
				if err != nil {
					return nil, fmt.Errorf("sgf: property %s: %w", sp.key, err)
				}
				cmd.Point = pt
			}
			n.Commands = append(n.Commands, cmd)
		}
	}

	type markerProp struct {
		key  string
		mark MarkerKind
	}
	for _, mp := range []markerProp{
		{"SQ", MarkSquare},
		{"CR", MarkCircle},
		{"TR", MarkTriangle},
	} {
		for _, val := range raw.Properties[mp.key] {
			pt, err := b.decodePoint(val)
			if err != nil {
				return nil, fmt.Errorf("sgf: property %s: %w", mp.key, err)
			}
			n.Commands = append(n.Commands, Command{Kind: CmdPlaceMarker, Marker: mp.mark, Point: pt})
		}
	}

	return n, nil
}

// isPassValue: an empty value is a pass; "tt" is a pass on boards up to 19x19.
func isPassValue(val string, size int) bool {
	return val == "" || (size <= 19 && val == "tt")
}

func (b *builder) decodePoint(val string) (Point, error) {
	if len(val) != 2 {
		return Point{}, fmt.Errorf("bad coordinate %q", val)
	}
	col := coordIndex(val[0])
	row := coordIndex(val[1])
	if col < 0 || col >= b.size || row < 0 || row >= b.size {
		return Point{}, fmt.Errorf("coordinate %q outside %dx%d board", val, b.size, b.size)
	}
	return Point{Row: row, Col: col}, nil
}

// coordIndex decodes one SGF coordinate letter: a-z, then A-Z for
// boards larger than 26.
func coordIndex(c byte) int {
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 26
	default:
		return -1
	}
}

// assignRenderRanks mirrors the layout levels of the variation window:
// the main continuation stays on its parent's level, every further
// variation takes the next free level. Ranks are distinct within a chain.
func assignRenderRanks(n *Node, next *int) {
	first := n.MainChild
	if first == nil {
		return
	}
	first.RenderRank = n.RenderRank
	for v := first.NextVar; v != nil; v = v.NextVar {
		v.RenderRank = *next
		*next++
	}
	for v := first; v != nil; v = v.NextVar {
		assignRenderRanks(v, next)
	}
}

// validateTree checks the structural invariants the navigator depends
// on: parent/child and sibling links are symmetric, and every node of a
// variation chain sits on the same ply. The last check is a hard
// precondition of the variation switch walk, so mismatched records are
// rejected at load time instead of desyncing the board later.
func validateTree(root *Node) error {
	var walk func(n *Node) error
	walk = func(n *Node) error {
		first := n.MainChild
		if first == nil {
			return nil
		}
		for v := first; v != nil; v = v.NextVar {
			if v.Parent != n {
				return fmt.Errorf("sgf: broken parent link at ply %d", v.PlyIndex)
			}
			if v.PlyIndex != first.PlyIndex {
				return fmt.Errorf("sgf: variation chain with mismatched plies %d and %d", first.PlyIndex, v.PlyIndex)
			}
			if v.NextVar != nil && v.NextVar.PrevVar != v {
				return fmt.Errorf("sgf: asymmetric variation links at ply %d", v.PlyIndex)
			}
			if err := walk(v); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}

/* ----------------------------- game info ------------------------------ */

func readGameInfo(raw RawNode) GameInfo {
	return GameInfo{
		BlackName: charProp(raw, "PB"),
		BlackRank: charProp(raw, "BR"),
		WhiteName: charProp(raw, "PW"),
		WhiteRank: charProp(raw, "WR"),
		BoardSize: intProp(raw, "SZ", DefaultBoardSize),
		Komi:      charProp(raw, "KM"),
		Handicap:  intProp(raw, "HA", 0),
		Date:      charProp(raw, "DT"),
		Result:    charProp(raw, "RE"),
		TimeSec:   intProp(raw, "TM", 0),
		Overtime:  charProp(raw, "OT"),
		Ruleset:   charProp(raw, "RU"),
	}
}

func charProp(raw RawNode, key string) string {
	if vals, ok := raw.Properties[key]; ok && len(vals) > 0 && vals[0] != "" {
		return vals[0]
	}
	return strUnknown
}

func intProp(raw RawNode, key string, def int) int {
	vals, ok := raw.Properties[key]
	if !ok || len(vals) == 0 {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(vals[0]))
	if err != nil {
		return def
	}
	return n
}
