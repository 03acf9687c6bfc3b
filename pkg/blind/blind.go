// Package blind implements a two-party blind ECDSA signature protocol
// over secp256k1.
//
// PROTOCOL: Blind ECDSA with BIP32 parameter derivation
// =====================================================
//
// A client ("Alice") obtains a valid ECDSA signature from a custodian
// ("Bob") without the custodian learning which public key, message, or
// final signature the request corresponds to.
//
// CORE ALGORITHM (all scalar arithmetic mod n, the group order):
//
//	 1. Alice chooses blinding factors a, b, c, d in [1, n-1].
//	 2. Bob chooses p, q in [1, n-1] and publishes two points:
//	      P = p^-1*G
//	      Q = q*P
//	 3. Alice computes her nonce point and public key:
//	      K = (c*a)^-1*P
//	      T = (a*Kx)^-1*(b*G + Q + d*c^-1*P)
//	    where Kx is the x-coordinate of K taken as a scalar.
//	    Alice can safely publish T; Bob cannot recognize his own
//	    contribution in it without knowing a, b, c, d.
//	 4. To sign a message hash h, Alice blinds it:
//	      h2 = a*h + b
//	    and sends h2 to Bob.
//	 5. Bob signs blindly:
//	      s1 = p*h2 + q
//	 6. Alice unblinds:
//	      s2 = c*s1 + d
//	    and (Kx, s2) is a valid ECDSA signature of h under T.
//
// SESSION LAYER:
//
// Instead of tracking four blinding factors and two custodian scalars per
// message, both parties derive them from BIP32 master keys and a single
// 32-bit index (see ClientSession and CustodianSession). The client must
// use each index for at most one message; reusing an index for two
// different hashes lets an observer correlate the requests and forfeits
// unlinkability.
//
// SECURITY PROPERTIES:
//   - Blindness: the custodian cannot link (h2, s1) to (h, T, signature)
//   - Unforgeability: the client cannot sign without the custodian's p, q
//   - Constant-time scalar operations for side-channel resistance
//   - Stateless core: every function is pure and safe for concurrent use
//
// The custodian performs no authentication; verifying the requester's
// identity over a separate channel is the caller's responsibility.
package blind

import (
	"math/big"

	"github.com/Caqil/blind-ecdsa/pkg/crypto/curve"
)

// CustodianParams is the custodian's public contribution to one protocol
// run: P = p^-1*G and Q = q*P.
type CustodianParams struct {
	P *curve.Point
	Q *curve.Point
}

// KeyAndNonce is the client's result for one protocol run: the nonce point
// K and the public key T the final signature will verify under.
type KeyAndNonce struct {
	K *curve.Point
	T *curve.Point
}

// CustodianPoints computes the custodian's public points P = p^-1*G and
// Q = q*P from its secret scalars p and q.
func CustodianPoints(cv curve.Curve, p, q *big.Int) (*CustodianParams, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}
	if err := validateScalars(cv, p, q); err != nil {
		return nil, err
	}

	pInv, err := cv.ScalarInv(p)
	if err != nil {
		return nil, ErrNonInvertibleScalar
	}

	P, err := cv.ScalarBaseMult(pInv)
	if err != nil {
		return nil, err
	}

	Q, err := cv.ScalarMult(P, q)
	if err != nil {
		return nil, err
	}

	return &CustodianParams{P: P, Q: Q}, nil
}

// ClientKeyAndNonce computes the client's nonce point K = (c*a)^-1*P and
// public key T = (a*Kx)^-1*(b*G + Q + d*c^-1*P) from the blinding factors
// a, b, c, d and the custodian's points P, Q.
func ClientKeyAndNonce(cv curve.Curve, a, b, c, d *big.Int, P, Q *curve.Point) (*KeyAndNonce, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}
	if err := validateScalars(cv, a, b, c, d); err != nil {
		return nil, err
	}
	if P == nil || Q == nil || P.IsInfinity() || Q.IsInfinity() {
		return nil, ErrPointAtInfinity
	}

	caInv, err := cv.ScalarInv(cv.ScalarMul(c, a))
	if err != nil {
		return nil, ErrNonInvertibleScalar
	}

	K, err := cv.ScalarMult(P, caInv)
	if err != nil {
		return nil, err
	}
	if K.IsInfinity() {
		return nil, ErrPointAtInfinity
	}

	kx := Kx(cv, K)
	if kx.Sign() == 0 {
		return nil, ErrNonInvertibleScalar
	}

	aKxInv, err := cv.ScalarInv(cv.ScalarMul(a, kx))
	if err != nil {
		return nil, ErrNonInvertibleScalar
	}

	cInv, err := cv.ScalarInv(c)
	if err != nil {
		return nil, ErrNonInvertibleScalar
	}

	bG, err := cv.ScalarBaseMult(b)
	if err != nil {
		return nil, err
	}

	dcP, err := cv.ScalarMult(P, cv.ScalarMul(d, cInv))
	if err != nil {
		return nil, err
	}

	sum, err := cv.Add(bG, Q)
	if err != nil {
		return nil, err
	}
	if sum.IsInfinity() {
		return nil, ErrPointAtInfinity
	}
	sum, err = cv.Add(sum, dcP)
	if err != nil {
		return nil, err
	}
	if sum.IsInfinity() {
		return nil, ErrPointAtInfinity
	}

	T, err := cv.ScalarMult(sum, aKxInv)
	if err != nil {
		return nil, err
	}
	if T.IsInfinity() {
		return nil, ErrPointAtInfinity
	}

	return &KeyAndNonce{K: K, T: T}, nil
}

// BlindHash blinds a 32-byte message digest: h2 = a*h + b mod n
func BlindHash(cv curve.Curve, hash []byte, a, b *big.Int) (*big.Int, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}
	if len(hash) != HashSize {
		return nil, ErrInvalidHashLength
	}

	h := cv.ScalarFromBytes(hash)
	return cv.ScalarAdd(cv.ScalarMul(a, h), b), nil
}

// CustodianSign produces the blind signature s1 = p*h2 + q mod n
func CustodianSign(cv curve.Curve, h2, p, q *big.Int) (*big.Int, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}
	if h2 == nil || p == nil || q == nil {
		return nil, ErrNilScalar
	}
	return cv.ScalarAdd(cv.ScalarMul(p, h2), q), nil
}

// UnblindSignature recovers the final s value: s2 = c*s1 + d mod n
func UnblindSignature(cv curve.Curve, s1, c, d *big.Int) (*big.Int, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}
	if s1 == nil || c == nil || d == nil {
		return nil, ErrNilScalar
	}
	return cv.ScalarAdd(cv.ScalarMul(c, s1), d), nil
}

// Finalize encodes (r = Kx mod n, s = s2) as a canonical DER signature,
// normalizing s to the low-S form required by Bitcoin consensus. The caller
// appends any transaction-specific sighash byte.
func Finalize(cv curve.Curve, kx, s2 *big.Int) ([]byte, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}
	if kx == nil || s2 == nil {
		return nil, ErrNilScalar
	}

	n := cv.Order()
	r := new(big.Int).Mod(kx, n)
	s := new(big.Int).Mod(s2, n)
	if r.Sign() == 0 || s.Sign() == 0 {
		return nil, ErrZeroSignatureValue
	}

	// Canonical low-S: use the smaller of {s, n-s}
	halfOrder := new(big.Int).Rsh(n, 1)
	if s.Cmp(halfOrder) > 0 {
		s.Sub(n, s)
	}

	return curve.SerializeSignature(r, s), nil
}

// Kx extracts the x-coordinate of a point as a scalar mod n
func Kx(cv curve.Curve, p *curve.Point) *big.Int {
	return new(big.Int).Mod(p.X, cv.Order())
}

// validateScalars checks that every value is in [1, n-1]. Zero is reported
// as non-invertible: every secret scalar here ends up inverted or paired
// with an inverted product.
func validateScalars(cv curve.Curve, values ...*big.Int) error {
	n := cv.Order()
	for _, v := range values {
		if v == nil {
			return ErrNilScalar
		}
		if v.Sign() == 0 {
			return ErrNonInvertibleScalar
		}
		if v.Sign() < 0 || v.Cmp(n) >= 0 {
			return ErrScalarOutOfRange
		}
	}
	return nil
}
