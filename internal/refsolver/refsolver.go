// Package refsolver is a small, self-contained interval-tracking solver
// used only by this module's own tests. It is not a real SMT engine —
// there is no DPLL, no bit-blasting, no model construction beyond
// brute-forcing a handful of boundary candidates per symbol — but for the
// narrow shape of constraints the resolver itself builds (conjunctions of
// Ult/Ule/Eq against a symbol and a constant), it is sound and complete
// enough to exercise every resolver code path.
//
// Named and shaped after the BVS/Ule/UGe/CheckSat/Eval/EvalUpto vocabulary
// of the solvers in this ecosystem, minus the embedded SMT engine itself.
package refsolver

import (
	"sort"

	"github.com/mkeeler/addrspace"
	"github.com/mkeeler/addrspace/expr"
)

// Solver is a stateless reference implementation of addrspace.Solver.
// It carries no fields because every query already receives its full
// constraint set (addrspace.ConstraintSet.Constraints) rather than
// accumulating state across calls the way an incremental SMT solver would.
type Solver struct{}

// New returns a new reference solver.
func New() *Solver { return &Solver{} }

var _ addrspace.Solver = (*Solver)(nil)

// GetValue samples a value for e that is consistent with cs.Constraints.
// ok is false if no candidate assignment satisfies the constraints.
func (s *Solver) GetValue(cs addrspace.ConstraintSet, e expr.Expr) (uint64, bool) {
	if c, ok := e.(*expr.ConstantExpr); ok {
		return c.Value, true
	}

	syms := collectSymbols(append(append([]expr.Expr{}, cs.Constraints...), e))
	if len(syms) == 0 {
		return eval(e, nil), true
	}

	plan, ok := buildPlan(syms, cs.Constraints, e)
	if !ok {
		return 0, false
	}

	var value uint64
	found := false
	plan.search(func(env map[string]uint64) bool {
		if !evalAll(cs.Constraints, env) {
			return false
		}
		value = eval(e, env)
		found = true
		return true
	})
	return value, found
}

// MayBeTrue reports whether predicate is satisfiable alongside
// cs.Constraints, searching over boundary-value candidates for every
// symbol the constraints and predicate mention.
func (s *Solver) MayBeTrue(cs addrspace.ConstraintSet, predicate expr.Expr) (bool, bool) {
	if c, ok := predicate.(*expr.ConstantExpr); ok {
		return c.IsTrue(), true
	}

	syms := collectSymbols(append(append([]expr.Expr{}, cs.Constraints...), predicate))
	if len(syms) == 0 {
		return eval(predicate, nil) != 0, true
	}

	plan, ok := buildPlan(syms, cs.Constraints, predicate)
	if !ok {
		return false, true // constraints alone are unsatisfiable
	}

	found := false
	plan.search(func(env map[string]uint64) bool {
		if evalAll(cs.Constraints, env) && eval(predicate, env) != 0 {
			found = true
			return true
		}
		return false
	})
	return found, true
}

// MustBeTrue reports whether predicate is valid under cs.Constraints: every
// satisfying assignment makes it true, i.e. its negation is unsatisfiable.
func (s *Solver) MustBeTrue(cs addrspace.ConstraintSet, predicate expr.Expr) (bool, bool) {
	may, ok := s.MayBeTrue(cs, expr.Not(predicate))
	if !ok {
		return false, false
	}
	return !may, true
}

// interval is an inclusive [lo, hi] candidate range for one symbol. lo >
// hi marks an unsatisfiable range.
type interval struct{ lo, hi uint64 }

func widthMask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// rangeFor narrows [0, 2^width) by scanning constraints for direct
// Ult/Ule/Eq comparisons between sym and a constant. Anything more
// elaborate (nested boolean structure, cross-symbol comparisons) is left
// unnarrowed — sound, since a wider candidate range never hides a
// satisfying assignment, only costs more candidates to find one.
func rangeFor(sym *expr.Symbol, constraints []expr.Expr) interval {
	iv := interval{lo: 0, hi: widthMask(sym.Width)}
	for _, c := range constraints {
		narrow(c, sym, &iv)
	}
	return iv
}

func narrow(c expr.Expr, sym *expr.Symbol, iv *interval) {
	be, ok := c.(*expr.BinaryExpr)
	if !ok {
		return
	}

	switch be.Op {
	case expr.ULT:
		if ls, ok := be.LHS.(*expr.Symbol); ok && ls.Name == sym.Name {
			if rc, ok := be.RHS.(*expr.ConstantExpr); ok {
				if rc.Value == 0 {
					iv.lo, iv.hi = 1, 0
					return
				}
				if rc.Value-1 < iv.hi {
					iv.hi = rc.Value - 1
				}
			}
		}
		if rs, ok := be.RHS.(*expr.Symbol); ok && rs.Name == sym.Name {
			if lc, ok := be.LHS.(*expr.ConstantExpr); ok {
				if lc.Value == widthMask(sym.Width) {
					iv.lo, iv.hi = 1, 0
					return
				}
				if lc.Value+1 > iv.lo {
					iv.lo = lc.Value + 1
				}
			}
		}
	case expr.ULE:
		if ls, ok := be.LHS.(*expr.Symbol); ok && ls.Name == sym.Name {
			if rc, ok := be.RHS.(*expr.ConstantExpr); ok && rc.Value < iv.hi {
				iv.hi = rc.Value
			}
		}
		if rs, ok := be.RHS.(*expr.Symbol); ok && rs.Name == sym.Name {
			if lc, ok := be.LHS.(*expr.ConstantExpr); ok && lc.Value > iv.lo {
				iv.lo = lc.Value
			}
		}
	case expr.EQ:
		if ls, ok := be.LHS.(*expr.Symbol); ok && ls.Name == sym.Name {
			if rc, ok := be.RHS.(*expr.ConstantExpr); ok {
				iv.lo, iv.hi = maxU64(iv.lo, rc.Value), minU64(iv.hi, rc.Value)
			}
		}
		if rs, ok := be.RHS.(*expr.Symbol); ok && rs.Name == sym.Name {
			if lc, ok := be.LHS.(*expr.ConstantExpr); ok {
				iv.lo, iv.hi = maxU64(iv.lo, lc.Value), minU64(iv.hi, lc.Value)
			}
		}
	}
}

// candidatesFor returns the boundary values worth trying for sym: the
// range's own endpoints and near-endpoints, plus every constant literal
// mentioned anywhere in exprs (and its immediate neighbours), clipped to
// the range. This catches every off-by-one the resolver's own cutoffs
// (must >= base, must < base) can produce.
func candidatesFor(iv interval, exprs []expr.Expr) []uint64 {
	if iv.lo > iv.hi {
		return nil
	}

	set := map[uint64]bool{}
	add := func(v uint64) {
		if v >= iv.lo && v <= iv.hi {
			set[v] = true
		}
	}

	add(iv.lo)
	add(iv.hi)
	if iv.hi > iv.lo {
		add(iv.lo + 1)
	}
	if iv.hi > iv.lo+1 {
		add(iv.hi - 1)
	}

	for _, k := range collectConstants(exprs) {
		add(k)
		if k > 0 {
			add(k - 1)
		}
		add(k + 1)
	}

	out := make([]uint64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// searchPlan is the per-symbol candidate set a query brute-forces over.
type searchPlan struct {
	syms       []*expr.Symbol
	candidates [][]uint64
}

// buildPlan computes every symbol's range and candidate set. ok is false
// if any symbol's range is already empty (the constraints alone are
// unsatisfiable).
func buildPlan(syms []*expr.Symbol, constraints []expr.Expr, extra expr.Expr) (searchPlan, bool) {
	all := append(append([]expr.Expr{}, constraints...), extra)

	plan := searchPlan{syms: syms, candidates: make([][]uint64, len(syms))}
	for i, sym := range syms {
		iv := rangeFor(sym, constraints)
		cands := candidatesFor(iv, all)
		if len(cands) == 0 {
			return searchPlan{}, false
		}
		plan.candidates[i] = cands
	}
	return plan, true
}

// search enumerates every candidate assignment (the cartesian product of
// each symbol's candidate set), calling visit with each; it stops as soon
// as visit returns true.
func (p searchPlan) search(visit func(env map[string]uint64) bool) {
	env := make(map[string]uint64, len(p.syms))
	var recurse func(i int) bool
	recurse = func(i int) bool {
		if i == len(p.syms) {
			return visit(env)
		}
		for _, v := range p.candidates[i] {
			env[p.syms[i].Name] = v
			if recurse(i + 1) {
				return true
			}
		}
		return false
	}
	recurse(0)
}

// collectSymbols returns the unique symbols referenced anywhere in es, in
// a deterministic (name-sorted) order.
func collectSymbols(es []expr.Expr) []*expr.Symbol {
	seen := map[string]*expr.Symbol{}
	var walk func(e expr.Expr)
	walk = func(e expr.Expr) {
		switch v := e.(type) {
		case *expr.Symbol:
			seen[v.Name] = v
		case *expr.NotExpr:
			walk(v.X)
		case *expr.BinaryExpr:
			walk(v.LHS)
			walk(v.RHS)
		}
	}
	for _, e := range es {
		if e != nil {
			walk(e)
		}
	}

	syms := make([]*expr.Symbol, 0, len(seen))
	for _, s := range seen {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].Name < syms[j].Name })
	return syms
}

// collectConstants returns every constant literal referenced anywhere in
// es, deduplicated.
func collectConstants(es []expr.Expr) []uint64 {
	seen := map[uint64]bool{}
	var walk func(e expr.Expr)
	walk = func(e expr.Expr) {
		switch v := e.(type) {
		case *expr.ConstantExpr:
			seen[v.Value] = true
		case *expr.NotExpr:
			walk(v.X)
		case *expr.BinaryExpr:
			walk(v.LHS)
			walk(v.RHS)
		}
	}
	for _, e := range es {
		walk(e)
	}

	out := make([]uint64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// evalAll reports whether every expression in es evaluates true under env.
func evalAll(es []expr.Expr, env map[string]uint64) bool {
	for _, e := range es {
		if eval(e, env) == 0 {
			return false
		}
	}
	return true
}

// eval evaluates e to a concrete (width-masked) value under env. Every
// symbol referenced by e must have an entry in env.
func eval(e expr.Expr, env map[string]uint64) uint64 {
	switch v := e.(type) {
	case *expr.ConstantExpr:
		return v.Value
	case *expr.Symbol:
		return env[v.Name]
	case *expr.NotExpr:
		if eval(v.X, env) != 0 {
			return 0
		}
		return 1
	case *expr.BinaryExpr:
		l := eval(v.LHS, env)
		r := eval(v.RHS, env)
		switch v.Op {
		case expr.ADD:
			return mask(l+r, expr.Width(v.LHS))
		case expr.SUB:
			return mask(l-r, expr.Width(v.LHS))
		case expr.AND:
			return mask(l&r, expr.Width(v.LHS))
		case expr.OR:
			return mask(l|r, expr.Width(v.LHS))
		case expr.EQ:
			return boolU64(mask(l, expr.Width(v.LHS)) == mask(r, expr.Width(v.LHS)))
		case expr.ULT:
			return boolU64(mask(l, expr.Width(v.LHS)) < mask(r, expr.Width(v.LHS)))
		case expr.ULE:
			return boolU64(mask(l, expr.Width(v.LHS)) <= mask(r, expr.Width(v.LHS)))
		}
	}
	panic("refsolver: unreachable expression shape")
}

func mask(v uint64, width uint) uint64 { return v & widthMask(width) }

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
