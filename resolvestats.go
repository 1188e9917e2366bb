package addrspace

import (
	"time"

	"github.com/mkeeler/addrspace/expr"
)

// ResolveStats accumulates resolver-side timing and call counts, mirroring
// the shape of the teacher's own z3.Stats{SolveN, SolveTime}: one counter
// and one cumulative duration per tracked operation.
type ResolveStats struct {
	GetValueN      int
	GetValueTime   time.Duration
	MayBeTrueN     int
	MayBeTrueTime  time.Duration
	MustBeTrueN    int
	MustBeTrueTime time.Duration
}

// StatsSolver wraps a Solver, recording call counts and cumulative timing
// for every oracle query into Stats. Grounded on z3.Solver's own
// Stats()/defer-based timing around Solve.
type StatsSolver struct {
	next  Solver
	Stats ResolveStats
}

// NewStatsSolver returns a Solver that forwards every call to next while
// recording it in Stats.
func NewStatsSolver(next Solver) *StatsSolver {
	return &StatsSolver{next: next}
}

func (s *StatsSolver) GetValue(cs ConstraintSet, e expr.Expr) (uint64, bool) {
	t := time.Now()
	defer func() {
		s.Stats.GetValueN++
		s.Stats.GetValueTime += time.Since(t)
	}()
	return s.next.GetValue(cs, e)
}

func (s *StatsSolver) MayBeTrue(cs ConstraintSet, predicate expr.Expr) (bool, bool) {
	t := time.Now()
	defer func() {
		s.Stats.MayBeTrueN++
		s.Stats.MayBeTrueTime += time.Since(t)
	}()
	return s.next.MayBeTrue(cs, predicate)
}

func (s *StatsSolver) MustBeTrue(cs ConstraintSet, predicate expr.Expr) (bool, bool) {
	t := time.Now()
	defer func() {
		s.Stats.MustBeTrueN++
		s.Stats.MustBeTrueTime += time.Since(t)
	}()
	return s.next.MustBeTrue(cs, predicate)
}

var _ Solver = (*StatsSolver)(nil)
