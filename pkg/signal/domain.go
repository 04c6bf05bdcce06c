package signal

import (
	"fmt"
	"reflect"

	"github.com/oisee/hdlsim/pkg/bitvector"
	"github.com/oisee/hdlsim/pkg/herrors"
)

// Domain validates a value written to a Signal's .next. Grounded on
// myhdl/_Signal.py's _checkBool/_checkInt/_checkIntbvBounds/_checkType.
type Domain interface {
	Validate(v interface{}) error
	// Width reports the bit width for edge-gating purposes: 0 means "not
	// a bit-vector domain", 1 means boolean or a width-1 vector
	// (edge-capable), and a larger value is a vector domain's full width.
	Width() int
}

// BoolDomain requires v to be a Go bool.
type BoolDomain struct{}

func (BoolDomain) Validate(v interface{}) error {
	if _, ok := v.(bool); !ok {
		return &herrors.TypeMismatchError{Expected: "bool", Got: fmt.Sprintf("%T", v)}
	}
	return nil
}

func (BoolDomain) Width() int { return 1 }

// BoundedIntDomain requires lo <= v < hi for an int64-valued signal.
type BoundedIntDomain struct {
	Lo, Hi int64
}

func (d BoundedIntDomain) Validate(v interface{}) error {
	i, ok := v.(int64)
	if !ok {
		if iv, ok2 := v.(int); ok2 {
			i = int64(iv)
		} else {
			return &herrors.TypeMismatchError{Expected: "int64", Got: fmt.Sprintf("%T", v)}
		}
	}
	if i < d.Lo || i >= d.Hi {
		return &herrors.ValueOutOfRangeError{
			Value: fmt.Sprintf("%d", i),
			Lo:    fmt.Sprintf("%d", d.Lo),
			Hi:    fmt.Sprintf("%d", d.Hi),
		}
	}
	return nil
}

func (BoundedIntDomain) Width() int { return 0 }

// VectorDomain requires v to be a *bitvector.BitVector of exactly Width
// bits, or an unsized one whose value fits in [0, 2^Width).
type VectorDomain struct {
	WidthBits int
}

func (d VectorDomain) Validate(v interface{}) error {
	bv, ok := v.(*bitvector.BitVector)
	if !ok {
		return &herrors.TypeMismatchError{Expected: "*bitvector.BitVector", Got: fmt.Sprintf("%T", v)}
	}
	if bv.Len() != 0 && bv.Len() != d.WidthBits {
		return &herrors.BitWidthMismatchError{Expected: d.WidthBits, Got: bv.Len()}
	}
	limit := int64(1) << uint(d.WidthBits)
	if bv.Int64() < 0 || bv.Int64() >= limit {
		return &herrors.ValueOutOfRangeError{Value: bv.String(), Lo: "0", Hi: fmt.Sprintf("%d", limit)}
	}
	return nil
}

func (d VectorDomain) Width() int { return d.WidthBits }

// OpaqueDomain requires v to be assignable to T (myhdl's isinstance(v, T)).
type OpaqueDomain struct {
	Type reflect.Type
}

func (d OpaqueDomain) Validate(v interface{}) error {
	if v == nil {
		return &herrors.TypeMismatchError{Expected: d.Type.String(), Got: "nil"}
	}
	if !reflect.TypeOf(v).AssignableTo(d.Type) {
		return &herrors.TypeMismatchError{Expected: d.Type.String(), Got: fmt.Sprintf("%T", v)}
	}
	return nil
}

func (OpaqueDomain) Width() int { return 0 }
