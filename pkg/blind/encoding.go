package blind

import (
	"math/big"

	"github.com/Caqil/blind-ecdsa/pkg/crypto/curve"
)

const (
	// HashSize is the required length of a message digest in bytes
	HashSize = 32

	// ScalarSize is the fixed width of blinded hash and blind signature
	// buffers in bytes
	ScalarSize = 32
)

// EncodeScalar encodes a scalar as a fixed-width big-endian buffer
func EncodeScalar(v *big.Int) []byte {
	out := make([]byte, ScalarSize)
	bytes := v.Bytes()
	if len(bytes) > ScalarSize {
		bytes = bytes[len(bytes)-ScalarSize:]
	}
	copy(out[ScalarSize-len(bytes):], bytes)
	return out
}

// DecodeScalar decodes a fixed-width big-endian buffer into a scalar mod n.
// Length is checked before any arithmetic.
func DecodeScalar(cv curve.Curve, data []byte) (*big.Int, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}
	if len(data) != ScalarSize {
		return nil, ErrInvalidScalarLength
	}
	return cv.ScalarFromBytes(data), nil
}
