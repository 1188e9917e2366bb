package addrspace

import "github.com/mkeeler/addrspace/expr"

// Pointer is a two-part value: a segment expression (zero means "flat"
// address space) and an offset/value expression (an intra-segment offset
// for a segmented pointer, or the address itself for a flat pointer).
type Pointer struct {
	Segment expr.Expr
	Offset  expr.Expr
}

// NewFlatPointer returns a pointer into the flat (segment == 0) space at
// the given (possibly symbolic) address.
func NewFlatPointer(address expr.Expr) Pointer {
	return Pointer{Segment: expr.Const(0, expr.Width(address)), Offset: address}
}

// NewSegmentedPointer returns a pointer into the given segment at the
// given intra-segment offset.
func NewSegmentedPointer(segment, offset expr.Expr) Pointer {
	return Pointer{Segment: segment, Offset: offset}
}

// IsConstant reports whether both the segment and the offset are
// concrete.
func (p Pointer) IsConstant() bool {
	return expr.IsConstant(p.Segment) && expr.IsConstant(p.Offset)
}

// isFlat reports whether the pointer's segment is the concrete value 0.
func (p Pointer) isFlat() bool {
	c, ok := p.Segment.(*expr.ConstantExpr)
	return ok && c.Value == 0
}
