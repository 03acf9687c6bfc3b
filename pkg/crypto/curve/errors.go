package curve

import "errors"

var (
	// ErrUnsupportedCurve is returned when the curve type is not supported
	ErrUnsupportedCurve = errors.New("unsupported curve type")

	// ErrInvalidPoint is returned when a point is nil or not on the curve
	ErrInvalidPoint = errors.New("invalid curve point")

	// ErrInvalidScalar is returned when a scalar is nil or malformed
	ErrInvalidScalar = errors.New("invalid scalar")

	// ErrScalarZero is returned when a scalar is zero where a non-zero
	// value is required
	ErrScalarZero = errors.New("scalar is zero")

	// ErrInvalidEncoding is returned when point encoding is malformed
	ErrInvalidEncoding = errors.New("invalid point encoding")
)
