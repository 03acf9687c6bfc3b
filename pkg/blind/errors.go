package blind

import "errors"

var (
	// ErrNilCurve is returned when curve is nil
	ErrNilCurve = errors.New("curve cannot be nil")

	// ErrNilScalar is returned when a required scalar is nil
	ErrNilScalar = errors.New("scalar cannot be nil")

	// ErrNilKey is returned when a required extended key is nil
	ErrNilKey = errors.New("extended key cannot be nil")

	// ErrKeyNotPrivate is returned when a session requires private key material
	ErrKeyNotPrivate = errors.New("extended key must carry private material")

	// ErrScalarOutOfRange is returned when a scalar is outside [1, n-1]
	ErrScalarOutOfRange = errors.New("scalar out of range [1, n-1]")

	// ErrNonInvertibleScalar is returned when a value that must be inverted
	// is congruent to zero mod n
	ErrNonInvertibleScalar = errors.New("scalar is not invertible mod n")

	// ErrPointAtInfinity is returned when a computation yields the point at
	// infinity where a usable key or nonce is required
	ErrPointAtInfinity = errors.New("point at infinity")

	// ErrInvalidHashLength is returned when a message digest is not 32 bytes
	ErrInvalidHashLength = errors.New("message hash must be exactly 32 bytes")

	// ErrInvalidScalarLength is returned when a blinded hash or blind
	// signature buffer is not 32 bytes
	ErrInvalidScalarLength = errors.New("scalar buffer must be exactly 32 bytes")

	// ErrIndexOutOfRange is returned when a protocol index exceeds MaxIndex
	ErrIndexOutOfRange = errors.New("protocol index out of range")

	// ErrZeroSignatureValue is returned when a final signature component is
	// zero and therefore unusable
	ErrZeroSignatureValue = errors.New("signature component is zero")

	// ErrNilSession is returned when a wrapped session is nil
	ErrNilSession = errors.New("session cannot be nil")

	// ErrIndexReused is returned by IndexGuard when an index has already
	// been signed for
	ErrIndexReused = errors.New("protocol index already used")
)
