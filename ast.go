package afpipeline

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies the shape of an Expr node. The AST manager that owns the
// real node set lives outside this component (see §1, "AST façade
// (external)"); Kind only needs to carry enough theory-family information
// for the pipeline to dispatch plugins and recognize propagation patterns.
type Kind int

const (
	KindSymbol Kind = iota
	KindValue
	KindNot
	KindAnd
	KindOr
	KindEq
	KindLt
	KindITE
	KindForall
	KindApply
	KindBV
)

func (k Kind) String() string {
	switch k {
	case KindSymbol:
		return "symbol"
	case KindValue:
		return "value"
	case KindNot:
		return "not"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindEq:
		return "eq"
	case KindLt:
		return "lt"
	case KindITE:
		return "ite"
	case KindForall:
		return "forall"
	case KindApply:
		return "apply"
	case KindBV:
		return "bv"
	}
	return "unknown"
}

// Expr is a node in the logical formula graph. Equality of Id() implies
// equality of expressions: the AST manager hash-conses every node, so
// pointer identity (surfaced here as a stable integer handle) is the only
// equality test the pipeline ever needs.
type Expr interface {
	Kind() Kind
	Id() uint64
	String() string
	Subexprs() []Expr
}

// Proof is an opaque witness of a rewrite or inference step. Present only
// when proof production is enabled on the owning Manager; see
// Manager.ProofsEnabled. The zero Proof is the "disabled" sentinel used
// throughout the pipeline so that every proof-valued local is cheap to
// construct regardless of whether proofs are tracked (§9 design notes).
type Proof struct {
	conclusion Expr
	rule       string
}

// Conclusion returns the equivalence this proof witnesses, or nil if proofs
// are disabled or this is the no-op sentinel.
func (p Proof) Conclusion() Expr { return p.conclusion }

func (p Proof) String() string {
	if p.conclusion == nil {
		return "<no-proof>"
	}
	return fmt.Sprintf("%s(%s)", p.rule, p.conclusion.String())
}

// Manager is the contract the pipeline needs from the external AST façade:
// construction of expressions and proofs, plus the handful of theory-level
// predicates the orchestrator itself must ask about (is this an equality,
// is this a value, are there quantifiers). Everything else is delegated to
// theory plugins (see plugin.go).
type Manager interface {
	Symbol(name string) Expr
	Value(payload any) Expr
	Not(e Expr) Expr
	And(es ...Expr) Expr
	Or(es ...Expr) Expr
	Eq(lhs, rhs Expr) Expr
	Lt(lhs, rhs Expr) Expr
	ITE(cond, then, els Expr) Expr
	Forall(vars []Expr, body Expr) Expr
	Apply(head Expr, args ...Expr) Expr
	BVMarker(inner Expr) Expr

	True() Expr
	False() Expr
	IsTrue(e Expr) bool
	IsFalse(e Expr) bool
	IsValue(e Expr) bool

	IsEq(e Expr) (lhs, rhs Expr, ok bool)
	IsNot(e Expr) (inner Expr, ok bool)
	IsAnd(e Expr) (children []Expr, ok bool)
	IsOr(e Expr) (children []Expr, ok bool)
	IsForall(e Expr) (vars []Expr, body Expr, ok bool)
	IsApply(e Expr) (head Expr, args []Expr, ok bool)

	HasQuantifier(e Expr) bool
	HasBV(e Expr) bool
	Symbols(e Expr) []Expr

	ProofsEnabled() bool
	MkAsserted(e Expr) Proof
	MkModusPonens(p1, p2 Proof) Proof
	MkSymmetry(p Proof) Proof
	MkTransitivity(p1, p2 Proof) Proof
	MkRewrite(from, to Expr) Proof
	MkRewriteStar(from, to Expr, rule string) Proof
	MkIffTrue(p Proof) Proof
	MkIffFalse(p Proof) Proof
}

// --- reference hash-consed implementation -----------------------------
//
// The production AST manager is external to this component (§1). This
// interner is the reference implementation used to exercise the pipeline
// in tests; it follows expr_builder.go's bucketed-hash-cache pattern
// (hash to find the bucket, shallow structural equality to resolve
// collisions) without the teacher's finalizer-driven refcounting, since an
// assertion set's AST does not need to be freed mid-process (see
// SPEC_FULL.md §4.11).

type node struct {
	kind     Kind
	sym      string
	val      any
	children []Expr
	vars     []Expr // KindForall bound variables
	id       uint64
}

func (n *node) Kind() Kind        { return n.kind }
func (n *node) Id() uint64        { return n.id }
func (n *node) Subexprs() []Expr  { return n.children }

func (n *node) String() string {
	switch n.kind {
	case KindSymbol:
		return n.sym
	case KindValue:
		return fmt.Sprintf("%v", n.val)
	case KindNot:
		return fmt.Sprintf("!%s", n.children[0])
	case KindAnd:
		return joinChildren(n.children, " && ")
	case KindOr:
		return joinChildren(n.children, " || ")
	case KindEq:
		return fmt.Sprintf("(%s == %s)", n.children[0], n.children[1])
	case KindLt:
		return fmt.Sprintf("(%s < %s)", n.children[0], n.children[1])
	case KindITE:
		return fmt.Sprintf("ITE(%s, %s, %s)", n.children[0], n.children[1], n.children[2])
	case KindForall:
		return fmt.Sprintf("forall %s. %s", joinChildren(n.vars, ", "), n.children[0])
	case KindApply:
		args := make([]string, len(n.children)-1)
		for i, c := range n.children[1:] {
			args[i] = c.String()
		}
		return fmt.Sprintf("%s(%s)", n.children[0], strings.Join(args, ", "))
	case KindBV:
		return fmt.Sprintf("bv<%s>", n.children[0])
	}
	return "?"
}

func joinChildren(es []Expr, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

func shallowEq(a, b *node) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindSymbol:
		return a.sym == b.sym
	case KindValue:
		return a.val == b.val
	case KindForall:
		if len(a.vars) != len(b.vars) || a.children[0].Id() != b.children[0].Id() {
			return false
		}
		for i := range a.vars {
			if a.vars[i].Id() != b.vars[i].Id() {
				return false
			}
		}
		return true
	default:
		if len(a.children) != len(b.children) {
			return false
		}
		for i := range a.children {
			if a.children[i].Id() != b.children[i].Id() {
				return false
			}
		}
		return true
	}
}

func hashOf(n *node) uint64 {
	h := xxhash.New()
	var kb [8]byte
	binary.LittleEndian.PutUint64(kb[:], uint64(n.kind))
	h.Write(kb[:])
	switch n.kind {
	case KindSymbol:
		h.Write([]byte(n.sym))
	case KindValue:
		h.Write([]byte(fmt.Sprintf("%v", n.val)))
	default:
		for _, c := range n.children {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], c.Id())
			h.Write(b[:])
		}
		for _, v := range n.vars {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], v.Id())
			h.Write(b[:])
		}
	}
	return h.Sum64()
}

// Interner is the reference Manager: a hash-consing expression factory.
type Interner struct {
	mu      sync.Mutex
	buckets map[uint64][]*node
	nextID  uint64
	proofs  bool

	trueE  Expr
	falseE Expr
}

// NewInterner constructs an empty reference AST manager. When proofs is
// true, every Mk* proof constructor records a real conclusion; when false
// they return the zero Proof sentinel (§9 design notes).
func NewInterner(proofs bool) *Interner {
	in := &Interner{buckets: make(map[uint64][]*node), proofs: proofs}
	in.trueE = in.intern(&node{kind: KindValue, val: true})
	in.falseE = in.intern(&node{kind: KindValue, val: false})
	return in
}

func (in *Interner) intern(n *node) Expr {
	in.mu.Lock()
	defer in.mu.Unlock()

	h := hashOf(n)
	for _, cand := range in.buckets[h] {
		if shallowEq(cand, n) {
			return cand
		}
	}
	in.nextID++
	n.id = in.nextID
	in.buckets[h] = append(in.buckets[h], n)
	return n
}

func (in *Interner) Symbol(name string) Expr { return in.intern(&node{kind: KindSymbol, sym: name}) }
func (in *Interner) Value(payload any) Expr  { return in.intern(&node{kind: KindValue, val: payload}) }
func (in *Interner) True() Expr              { return in.trueE }
func (in *Interner) False() Expr             { return in.falseE }

func (in *Interner) Not(e Expr) Expr {
	if inner, ok := in.IsNot(e); ok {
		return inner
	}
	return in.intern(&node{kind: KindNot, children: []Expr{e}})
}

// And builds a flattened, sorted n-ary conjunction, mirroring
// expr_builder.go's flatten-then-sort-by-Id treatment of commutative
// arithmetic operators (see mkinternalBVExprAdd and flattenOrAddArithmeticArg),
// generalized here to the Boolean theory.
func (in *Interner) And(es ...Expr) Expr {
	flat := flattenKind(es, KindAnd)
	flat = dedupByID(flat)
	for _, e := range flat {
		if in.IsFalse(e) {
			return in.falseE
		}
	}
	flat = removeValue(flat, in.trueE)
	if len(flat) == 0 {
		return in.trueE
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sortByID(flat)
	return in.intern(&node{kind: KindAnd, children: flat})
}

func (in *Interner) Or(es ...Expr) Expr {
	flat := flattenKind(es, KindOr)
	flat = dedupByID(flat)
	for _, e := range flat {
		if in.IsTrue(e) {
			return in.trueE
		}
	}
	flat = removeValue(flat, in.falseE)
	if len(flat) == 0 {
		return in.falseE
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sortByID(flat)
	return in.intern(&node{kind: KindOr, children: flat})
}

func flattenKind(es []Expr, k Kind) []Expr {
	out := make([]Expr, 0, len(es))
	for _, e := range es {
		if e.Kind() == k {
			out = append(out, e.Subexprs()...)
		} else {
			out = append(out, e)
		}
	}
	return out
}

func dedupByID(es []Expr) []Expr {
	seen := make(map[uint64]bool, len(es))
	out := make([]Expr, 0, len(es))
	for _, e := range es {
		if seen[e.Id()] {
			continue
		}
		seen[e.Id()] = true
		out = append(out, e)
	}
	return out
}

func removeValue(es []Expr, v Expr) []Expr {
	out := make([]Expr, 0, len(es))
	for _, e := range es {
		if e.Id() != v.Id() {
			out = append(out, e)
		}
	}
	return out
}

func sortByID(es []Expr) {
	sort.Slice(es, func(i, j int) bool { return es[i].Id() < es[j].Id() })
}

// Eq builds an equality node. Argument order is preserved deliberately:
// propagate_values (§4.4) is the component responsible for canonicalizing
// "value = x" into "x = value", not the constructor — building that
// canonicalization into Eq itself would give the pass nothing to do.
func (in *Interner) Eq(lhs, rhs Expr) Expr {
	if lhs.Id() == rhs.Id() {
		return in.trueE
	}
	return in.intern(&node{kind: KindEq, children: []Expr{lhs, rhs}})
}

func (in *Interner) Lt(lhs, rhs Expr) Expr {
	return in.intern(&node{kind: KindLt, children: []Expr{lhs, rhs}})
}

func (in *Interner) ITE(cond, then, els Expr) Expr {
	if in.IsTrue(cond) {
		return then
	}
	if in.IsFalse(cond) {
		return els
	}
	if then.Id() == els.Id() {
		return then
	}
	return in.intern(&node{kind: KindITE, children: []Expr{cond, then, els}})
}

func (in *Interner) Forall(vars []Expr, body Expr) Expr {
	if len(vars) == 0 {
		return body
	}
	return in.intern(&node{kind: KindForall, vars: vars, children: []Expr{body}})
}

func (in *Interner) Apply(head Expr, args ...Expr) Expr {
	children := append([]Expr{head}, args...)
	return in.intern(&node{kind: KindApply, children: children})
}

func (in *Interner) BVMarker(inner Expr) Expr {
	if inner.Kind() == KindBV {
		return inner
	}
	return in.intern(&node{kind: KindBV, children: []Expr{inner}})
}

func (in *Interner) IsTrue(e Expr) bool  { return e.Kind() == KindValue && e.Id() == in.trueE.Id() }
func (in *Interner) IsFalse(e Expr) bool { return e.Kind() == KindValue && e.Id() == in.falseE.Id() }
func (in *Interner) IsValue(e Expr) bool { return e.Kind() == KindValue }

func (in *Interner) IsEq(e Expr) (Expr, Expr, bool) {
	if e.Kind() != KindEq {
		return nil, nil, false
	}
	c := e.Subexprs()
	return c[0], c[1], true
}

func (in *Interner) IsNot(e Expr) (Expr, bool) {
	if e.Kind() != KindNot {
		return nil, false
	}
	return e.Subexprs()[0], true
}

func (in *Interner) IsAnd(e Expr) ([]Expr, bool) {
	if e.Kind() != KindAnd {
		return nil, false
	}
	return e.Subexprs(), true
}

func (in *Interner) IsOr(e Expr) ([]Expr, bool) {
	if e.Kind() != KindOr {
		return nil, false
	}
	return e.Subexprs(), true
}

func (in *Interner) IsForall(e Expr) ([]Expr, Expr, bool) {
	if e.Kind() != KindForall {
		return nil, nil, false
	}
	n := e.(*node)
	return n.vars, n.children[0], true
}

func (in *Interner) IsApply(e Expr) (Expr, []Expr, bool) {
	if e.Kind() != KindApply {
		return nil, nil, false
	}
	c := e.Subexprs()
	return c[0], c[1:], true
}

func (in *Interner) HasQuantifier(e Expr) bool {
	return anySubterm(e, func(x Expr) bool { return x.Kind() == KindForall })
}

func (in *Interner) HasBV(e Expr) bool {
	return anySubterm(e, func(x Expr) bool { return x.Kind() == KindBV })
}

func anySubterm(e Expr, pred func(Expr) bool) bool {
	visited := make(map[uint64]bool)
	var walk func(Expr) bool
	walk = func(x Expr) bool {
		if visited[x.Id()] {
			return false
		}
		visited[x.Id()] = true
		if pred(x) {
			return true
		}
		for _, c := range x.Subexprs() {
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(e)
}

// Symbols returns every KindSymbol leaf reachable from e, mirroring
// ExprBuilder.InvolvedInputs (expr_builder.go).
func (in *Interner) Symbols(e Expr) []Expr {
	visited := make(map[uint64]bool)
	var out []Expr
	var walk func(Expr)
	walk = func(x Expr) {
		if visited[x.Id()] {
			return
		}
		visited[x.Id()] = true
		if x.Kind() == KindSymbol {
			out = append(out, x)
			return
		}
		for _, c := range x.Subexprs() {
			walk(c)
		}
	}
	walk(e)
	return out
}

func (in *Interner) ProofsEnabled() bool { return in.proofs }

func (in *Interner) MkAsserted(e Expr) Proof {
	if !in.proofs {
		return Proof{}
	}
	return Proof{conclusion: e, rule: "asserted"}
}

func (in *Interner) MkModusPonens(p1, p2 Proof) Proof {
	if !in.proofs {
		return Proof{}
	}
	if p2.conclusion == nil {
		return p1
	}
	return Proof{conclusion: p2.conclusion, rule: "modus-ponens"}
}

func (in *Interner) MkSymmetry(p Proof) Proof {
	if !in.proofs || p.conclusion == nil {
		return p
	}
	lhs, rhs, ok := in.IsEq(p.conclusion)
	if !ok {
		return p
	}
	return Proof{conclusion: in.Eq(rhs, lhs), rule: "symmetry"}
}

func (in *Interner) MkTransitivity(p1, p2 Proof) Proof {
	if !in.proofs {
		return Proof{}
	}
	if p1.conclusion == nil {
		return p2
	}
	if p2.conclusion == nil {
		return p1
	}
	return Proof{conclusion: p2.conclusion, rule: "transitivity"}
}

func (in *Interner) MkRewrite(from, to Expr) Proof {
	if !in.proofs {
		return Proof{}
	}
	return Proof{conclusion: in.Eq(from, to), rule: "rewrite"}
}

func (in *Interner) MkRewriteStar(from, to Expr, rule string) Proof {
	if !in.proofs {
		return Proof{}
	}
	return Proof{conclusion: in.Eq(from, to), rule: rule}
}

func (in *Interner) MkIffTrue(p Proof) Proof {
	if !in.proofs || p.conclusion == nil {
		return p
	}
	return Proof{conclusion: in.Eq(p.conclusion, in.trueE), rule: "iff-true"}
}

func (in *Interner) MkIffFalse(p Proof) Proof {
	if !in.proofs || p.conclusion == nil {
		return p
	}
	return Proof{conclusion: in.Eq(p.conclusion, in.falseE), rule: "iff-false"}
}
