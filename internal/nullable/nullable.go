// Package nullable implements SQL-style null propagation for comparisons and
// arithmetic over optional values: a nil operand yields nil (or false for
// predicates) instead of a zero value.
package nullable

import "time"

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// After reports whether a is strictly after b. It is false when either is nil.
func After(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	return a.After(*b)
}

// AfterOrNil is like After but returns nil when either operand is nil.
func AfterOrNil(a, b *time.Time) *bool {
	if a == nil || b == nil {
		return nil
	}
	return Ptr(a.After(*b))
}

// Days returns the fractional number of days from start to end, or nil when
// either is nil.
func Days(start, end *time.Time) *float64 {
	if start == nil || end == nil {
		return nil
	}
	return Ptr(end.Sub(*start).Hours() / 24)
}

// Div divides num by den. It returns nil when either operand is nil or den is zero.
func Div(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return Ptr(*num / *den)
}

// TruncateDay returns t truncated to midnight in its own location.
func TruncateDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	return Ptr(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}

// Positive returns v when it is non-nil and strictly greater than zero, else nil.
func Positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// NonZero returns nil for a nil or zero value, else v.
func NonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

// MinTime returns the earlier of a and b, ignoring nils.
func MinTime(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

// MaxTime returns the later of a and b, ignoring nils.
func MaxTime(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}

// Coalesce returns the first non-nil argument.
func Coalesce[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
