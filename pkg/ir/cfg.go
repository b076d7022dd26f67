package ir

import (
	"fmt"
	"strings"
)

// Block is a maximal straight-line run of instructions.
type Block struct {
	Index int
	Start int // first position
	End   int // one past the last position

	Succs []int
	Preds []int
}

// Last returns the position of the block's final instruction.
func (b *Block) Last() int {
	return b.End - 1
}

// CFG is the control-flow graph of a Function. It is derived from the
// opcode classifiers alone: blocks start at branch-target markers and
// after branches and terminators.
type CFG struct {
	Blocks []*Block

	blockOf []int
}

// BuildCFG computes the control-flow graph of f. Edges to out-of-range
// targets are dropped; Validate reports them.
func BuildCFG(f *Function) *CFG {
	n := len(f.Text)
	g := &CFG{blockOf: make([]int, n)}
	if n == 0 {
		return g
	}

	leader := make([]bool, n+1)
	leader[0] = true
	for p, in := range f.Text {
		op := in.op
		if op.IsBranchTarget() {
			leader[p] = true
		}
		if op.IsBranch() || op.IsTerminator() {
			leader[p+1] = true
		}
		if t, ok := in.Target(); ok && t < n {
			leader[t] = true
		}
	}

	for p := 0; p < n; p++ {
		if leader[p] {
			g.Blocks = append(g.Blocks, &Block{Index: len(g.Blocks), Start: p})
		}
		b := g.Blocks[len(g.Blocks)-1]
		b.End = p + 1
		g.blockOf[p] = b.Index
	}

	for _, b := range g.Blocks {
		in := f.Text[b.Last()]
		op := in.op
		if !op.IsTerminator() && b.End < n {
			g.addEdge(b.Index, g.blockOf[b.End])
		}
		if t, ok := in.Target(); ok && t < n {
			g.addEdge(b.Index, g.blockOf[t])
		}
	}
	return g
}

func (g *CFG) addEdge(from, to int) {
	for _, s := range g.Blocks[from].Succs {
		if s == to {
			return
		}
	}
	g.Blocks[from].Succs = append(g.Blocks[from].Succs, to)
	g.Blocks[to].Preds = append(g.Blocks[to].Preds, from)
}

// BlockOf returns the index of the block containing position p.
func (g *CFG) BlockOf(p int) int {
	return g.blockOf[p]
}

// Reachable reports, per block, whether it can be reached from the entry.
func (g *CFG) Reachable() []bool {
	seen := make([]bool, len(g.Blocks))
	if len(g.Blocks) == 0 {
		return seen
	}
	stack := []int{0}
	seen[0] = true
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range g.Blocks[b].Succs {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

// ReversePostorder returns the reachable blocks in reverse postorder.
func (g *CFG) ReversePostorder() []int {
	if len(g.Blocks) == 0 {
		return nil
	}
	seen := make([]bool, len(g.Blocks))
	var post []int
	var visit func(int)
	visit = func(b int) {
		seen[b] = true
		for _, s := range g.Blocks[b].Succs {
			if !seen[s] {
				visit(s)
			}
		}
		post = append(post, b)
	}
	visit(0)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// String renders one line per block: "b0 [0,3) -> b1 b2".
func (g *CFG) String() string {
	var sb strings.Builder
	for _, b := range g.Blocks {
		fmt.Fprintf(&sb, "b%d [%d,%d)", b.Index, b.Start, b.End)
		if len(b.Succs) > 0 {
			sb.WriteString(" ->")
			for _, s := range b.Succs {
				fmt.Fprintf(&sb, " b%d", s)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// posSet is a set of instruction positions.
type posSet []uint64

func newPosSet(n int, full bool) posSet {
	s := make(posSet, (n+63)/64)
	if full {
		for i := range s {
			s[i] = ^uint64(0)
		}
	}
	return s
}

func (s posSet) add(p int) { s[p/64] |= 1 << (uint(p) % 64) }
func (s posSet) has(p int) bool { return s[p/64]&(1<<(uint(p)%64)) != 0 }
func (s posSet) copyFrom(o posSet) { copy(s, o) }
func (s posSet) intersect(o posSet) {
	for i := range s {
		s[i] &= o[i]
	}
}

func (s posSet) union(o posSet) {
	for i := range s {
		s[i] |= o[i]
	}
}

func (s posSet) equal(o posSet) bool {
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// definedOnEntry computes, for each block, the set of positions whose
// result is defined on every path from the function entry to the start
// of the block. Unreachable blocks keep the full set.
func (g *CFG) definedOnEntry(f *Function) []posSet {
	return g.reachingDefs(f, true)
}

// mayBeDefinedOnEntry computes, for each block, the set of positions whose
// result is defined on at least one path from the entry to the start of
// the block.
func (g *CFG) mayBeDefinedOnEntry(f *Function) []posSet {
	return g.reachingDefs(f, false)
}

// reachingDefs solves the forward definition problem over the CFG. With
// must set, predecessor sets meet by intersection, otherwise by union.
func (g *CFG) reachingDefs(f *Function, must bool) []posSet {
	n := len(f.Text)
	in := make([]posSet, len(g.Blocks))
	out := make([]posSet, len(g.Blocks))
	for i := range g.Blocks {
		in[i] = newPosSet(n, must && i != 0)
		out[i] = newPosSet(n, must)
	}

	order := g.ReversePostorder()
	var tmp posSet
	for changed := true; changed; {
		changed = false
		for _, bi := range order {
			b := g.Blocks[bi]
			if bi != 0 {
				tmp = newPosSet(n, must)
				for _, p := range b.Preds {
					if must {
						tmp.intersect(out[p])
					} else {
						tmp.union(out[p])
					}
				}
				in[bi].copyFrom(tmp)
			}
			tmp = newPosSet(n, false)
			tmp.copyFrom(in[bi])
			for p := b.Start; p < b.End; p++ {
				if f.Text[p].op.HasResult() {
					tmp.add(p)
				}
			}
			if !tmp.equal(out[bi]) {
				out[bi].copyFrom(tmp)
				changed = true
			}
		}
	}
	return in
}
