package feature

import (
	"github.com/rotisserie/eris"
)

// Op is a scalar comparison operator for attribute filtering.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpLt  Op = "lt"
	OpLe  Op = "le"
	OpGt  Op = "gt"
	OpGe  Op = "ge"
)

// FilterAttr returns the subset of features whose named attribute satisfies
// the predicate, preserving input order. Every feature must carry the
// attribute (ErrUnknownAttribute otherwise). Ordering comparisons require
// numeric values on both sides (ErrTypeMismatch otherwise); equality also
// works on strings. Null attribute values never satisfy any predicate.
func (c *Collection) FilterAttr(name string, op Op, value any) (*Collection, error) {
	out := &Collection{CRS: c.CRS}
	for i, f := range c.Features {
		v, ok := f.Attrs[name]
		if !ok {
			return nil, eris.Wrapf(ErrUnknownAttribute, "%q (feature %d)", name, i)
		}
		keep, err := compare(v, op, value)
		if err != nil {
			return nil, eris.Wrapf(err, "attribute %q (feature %d)", name, i)
		}
		if keep {
			out.Features = append(out.Features, f)
		}
	}
	return out, nil
}

func compare(v any, op Op, want any) (bool, error) {
	// Null sentinel values fall out of every predicate.
	if v == nil {
		return false, nil
	}

	switch op {
	case OpEq, OpNeq:
		eq, err := scalarEqual(v, want)
		if err != nil {
			return false, err
		}
		if op == OpNeq {
			return !eq, nil
		}
		return eq, nil
	case OpLt, OpLe, OpGt, OpGe:
		a, ok := asNumber(v)
		if !ok {
			return false, eris.Wrapf(ErrTypeMismatch, "value %v is not numeric", v)
		}
		b, ok := asNumber(want)
		if !ok {
			return false, eris.Wrapf(ErrTypeMismatch, "literal %v is not numeric", want)
		}
		switch op {
		case OpLt:
			return a < b, nil
		case OpLe:
			return a <= b, nil
		case OpGt:
			return a > b, nil
		default:
			return a >= b, nil
		}
	default:
		return false, eris.Errorf("feature: unknown operator %q", op)
	}
}

func scalarEqual(v, want any) (bool, error) {
	if a, ok := asNumber(v); ok {
		if b, ok := asNumber(want); ok {
			return a == b, nil
		}
		return false, nil
	}
	vs, ok := v.(string)
	if !ok {
		return false, eris.Wrapf(ErrTypeMismatch, "unsupported value type %T", v)
	}
	ws, ok := want.(string)
	if !ok {
		return false, nil
	}
	return vs == ws, nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
