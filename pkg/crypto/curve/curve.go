// Package curve provides elliptic curve operations for blind signatures.
// All implementations use constant-time operations to prevent timing attacks.
package curve

import (
	"crypto/elliptic"
	"math/big"
)

// CurveType represents the type of elliptic curve
type CurveType int

const (
	// Secp256k1 is the Bitcoin curve
	Secp256k1 CurveType = iota
)

// Point represents a point on an elliptic curve
type Point struct {
	X     *big.Int
	Y     *big.Int
	curve Curve
}

// Curve defines the interface for elliptic curve operations.
// Scalars are big.Int values reduced mod N; scalar helpers never fail
// except where an inverse may not exist.
type Curve interface {
	// Params returns the curve parameters
	Params() *CurveParams

	// ScalarBaseMult computes k*G where G is the generator
	ScalarBaseMult(k *big.Int) (*Point, error)

	// ScalarMult computes k*P for point P
	ScalarMult(p *Point, k *big.Int) (*Point, error)

	// Add computes P1 + P2
	Add(p1, p2 *Point) (*Point, error)

	// IsOnCurve verifies if point P is on the curve
	IsOnCurve(p *Point) bool

	// Marshal encodes a point to SEC compressed bytes
	Marshal(p *Point) []byte

	// Unmarshal decodes bytes to a point
	Unmarshal(data []byte) (*Point, error)

	// ScalarAdd computes a + b mod N
	ScalarAdd(a, b *big.Int) *big.Int

	// ScalarSub computes a - b mod N
	ScalarSub(a, b *big.Int) *big.Int

	// ScalarMul computes a * b mod N
	ScalarMul(a, b *big.Int) *big.Int

	// ScalarInv computes a^-1 mod N
	ScalarInv(a *big.Int) (*big.Int, error)

	// ScalarFromBytes interprets big-endian bytes as a scalar mod N
	ScalarFromBytes(data []byte) *big.Int

	// Generator returns the generator point
	Generator() *Point

	// Order returns the order of the curve
	Order() *big.Int

	// Name returns the curve name
	Name() string
}

// CurveParams contains the parameters of an elliptic curve
type CurveParams struct {
	// Name of the curve
	Name string

	// P is the prime field modulus
	P *big.Int

	// N is the order of the base point
	N *big.Int

	// B is the curve equation parameter (y^2 = x^3 + B for secp256k1)
	B *big.Int

	// Gx, Gy are the coordinates of the generator
	Gx, Gy *big.Int

	// BitSize is the size of the curve in bits
	BitSize int

	// Underlying elliptic.Curve (for standard curves)
	Curve elliptic.Curve
}

// NewCurve creates a new curve instance based on the curve type
func NewCurve(curveType CurveType) (Curve, error) {
	switch curveType {
	case Secp256k1:
		return newSecp256k1()
	default:
		return nil, ErrUnsupportedCurve
	}
}

// IsEqual checks if two points are equal
func (p *Point) IsEqual(other *Point) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.X.Cmp(other.X) == 0 && p.Y.Cmp(other.Y) == 0
}

// IsInfinity checks if point is the point at infinity.
// Addition of inverse points yields (0, 0) from the underlying library,
// which is treated as infinity here.
func (p *Point) IsInfinity() bool {
	if p == nil || p.X == nil || p.Y == nil {
		return true
	}
	return p.X.Sign() == 0 && p.Y.Sign() == 0
}

// Clone creates a deep copy of the point
func (p *Point) Clone() *Point {
	if p == nil {
		return nil
	}
	return &Point{
		X:     new(big.Int).Set(p.X),
		Y:     new(big.Int).Set(p.Y),
		curve: p.curve,
	}
}

// Bytes returns the compressed encoding of the point
func (p *Point) Bytes() []byte {
	if p.curve == nil {
		return nil
	}
	return p.curve.Marshal(p)
}
