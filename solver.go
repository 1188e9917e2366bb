package addrspace

import "github.com/mkeeler/addrspace/expr"

// ConstraintSet carries the accumulated path constraints and query
// metadata the resolver forwards to the solver on every oracle call.
// It stands in for the full "execution state" spec §4.4 mentions; the
// state that actually drives symbolic interpretation is out of this
// module's scope (see addrspace.go's package doc), so this is the
// narrow slice of it the resolver actually depends on.
type ConstraintSet struct {
	Constraints []expr.Expr
	Metadata    QueryMetadata
}

// QueryMetadata is opaque, caller-supplied context attached to every
// solver call (e.g. the originating instruction or state id), forwarded
// unchanged so solver implementations can log or budget per query. The
// resolver never inspects it.
type QueryMetadata struct {
	Purpose string
	StateID int
}

// Solver is the constraint-solver oracle the resolver consults. Every
// method returns ok=false on internal solver failure (timeout, resource
// limit, or any other inconclusive outcome); the resolver propagates that
// failure unchanged (spec §4.6) rather than retrying or guessing.
type Solver interface {
	// GetValue samples any single concrete value for expr that satisfies
	// cs.Constraints. ok is false if the query failed (including if the
	// constraints are unsatisfiable).
	GetValue(cs ConstraintSet, e expr.Expr) (value uint64, ok bool)

	// MayBeTrue reports whether predicate is satisfiable under
	// cs.Constraints (there exists at least one satisfying assignment
	// making predicate true). ok is false if the query failed.
	MayBeTrue(cs ConstraintSet, predicate expr.Expr) (result bool, ok bool)

	// MustBeTrue reports whether predicate is valid under cs.Constraints
	// (every satisfying assignment makes predicate true). ok is false if
	// the query failed.
	MustBeTrue(cs ConstraintSet, predicate expr.Expr) (result bool, ok bool)
}
