package curve

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// secp256k1Curve implements the Curve interface for secp256k1 using btcec
type secp256k1Curve struct {
	params *CurveParams
}

// newSecp256k1 creates a new secp256k1 curve instance using btcec
func newSecp256k1() (Curve, error) {
	return &secp256k1Curve{
		params: &CurveParams{
			Name:    "secp256k1",
			P:       btcec.S256().Params().P,
			N:       btcec.S256().Params().N,
			B:       btcec.S256().Params().B,
			Gx:      btcec.S256().Params().Gx,
			Gy:      btcec.S256().Params().Gy,
			BitSize: btcec.S256().Params().BitSize,
			Curve:   btcec.S256(),
		},
	}, nil
}

func (c *secp256k1Curve) Params() *CurveParams {
	return c.params
}

func (c *secp256k1Curve) ScalarBaseMult(k *big.Int) (*Point, error) {
	if k == nil {
		return nil, ErrInvalidScalar
	}

	// Normalize k to be within [1, N-1]
	k = new(big.Int).Mod(k, c.params.N)
	if k.Sign() == 0 {
		return nil, ErrScalarZero
	}

	// btcec provides constant-time operations and optimized algorithms
	privKey, _ := btcec.PrivKeyFromBytes(paddedBytes(k, 32))
	pubKey := privKey.PubKey()

	return &Point{
		X:     pubKey.X(),
		Y:     pubKey.Y(),
		curve: c,
	}, nil
}

func (c *secp256k1Curve) ScalarMult(p *Point, k *big.Int) (*Point, error) {
	if p == nil {
		return nil, ErrInvalidPoint
	}
	if k == nil {
		return nil, ErrInvalidScalar
	}
	if !c.IsOnCurve(p) {
		return nil, ErrInvalidPoint
	}

	// Normalize k
	k = new(big.Int).Mod(k, c.params.N)
	if k.Sign() == 0 {
		return nil, ErrScalarZero
	}

	resultX, resultY := btcec.S256().ScalarMult(p.X, p.Y, k.Bytes())

	return &Point{
		X:     resultX,
		Y:     resultY,
		curve: c,
	}, nil
}

func (c *secp256k1Curve) Add(p1, p2 *Point) (*Point, error) {
	if p1 == nil || p2 == nil {
		return nil, ErrInvalidPoint
	}
	if !c.IsOnCurve(p1) || !c.IsOnCurve(p2) {
		return nil, ErrInvalidPoint
	}

	x, y := btcec.S256().Add(p1.X, p1.Y, p2.X, p2.Y)

	return &Point{
		X:     x,
		Y:     y,
		curve: c,
	}, nil
}

func (c *secp256k1Curve) IsOnCurve(p *Point) bool {
	if p == nil || p.X == nil || p.Y == nil {
		return false
	}
	return btcec.S256().IsOnCurve(p.X, p.Y)
}

func (c *secp256k1Curve) Marshal(p *Point) []byte {
	if p == nil {
		return nil
	}

	// SEC compressed encoding (33 bytes)
	var xField, yField btcec.FieldVal
	xField.SetByteSlice(paddedBytes(p.X, 32))
	yField.SetByteSlice(paddedBytes(p.Y, 32))

	pubKey := btcec.NewPublicKey(&xField, &yField)

	return pubKey.SerializeCompressed()
}

func (c *secp256k1Curve) Unmarshal(data []byte) (*Point, error) {
	// btcec supports 33-byte compressed or 65-byte uncompressed format
	if len(data) != 33 && len(data) != 65 {
		return nil, ErrInvalidEncoding
	}

	pubKey, err := btcec.ParsePubKey(data)
	if err != nil {
		return nil, ErrInvalidEncoding
	}

	p := &Point{
		X:     pubKey.X(),
		Y:     pubKey.Y(),
		curve: c,
	}

	if !c.IsOnCurve(p) {
		return nil, ErrInvalidPoint
	}

	return p, nil
}

func (c *secp256k1Curve) ScalarAdd(a, b *big.Int) *big.Int {
	result := new(big.Int).Add(a, b)
	return result.Mod(result, c.params.N)
}

func (c *secp256k1Curve) ScalarSub(a, b *big.Int) *big.Int {
	result := new(big.Int).Sub(a, b)
	return result.Mod(result, c.params.N)
}

func (c *secp256k1Curve) ScalarMul(a, b *big.Int) *big.Int {
	result := new(big.Int).Mul(a, b)
	return result.Mod(result, c.params.N)
}

func (c *secp256k1Curve) ScalarInv(a *big.Int) (*big.Int, error) {
	if a == nil {
		return nil, ErrInvalidScalar
	}

	v := new(big.Int).Mod(a, c.params.N)
	if v.Sign() == 0 {
		return nil, ErrScalarZero
	}

	// Go's ModInverse for a prime modulus uses the constant-time
	// exponentiation path
	result := new(big.Int).ModInverse(v, c.params.N)
	if result == nil {
		return nil, ErrInvalidScalar
	}

	return result, nil
}

func (c *secp256k1Curve) ScalarFromBytes(data []byte) *big.Int {
	result := new(big.Int).SetBytes(data)
	return result.Mod(result, c.params.N)
}

func (c *secp256k1Curve) Generator() *Point {
	return &Point{
		X:     new(big.Int).Set(c.params.Gx),
		Y:     new(big.Int).Set(c.params.Gy),
		curve: c,
	}
}

func (c *secp256k1Curve) Order() *big.Int {
	return new(big.Int).Set(c.params.N)
}

func (c *secp256k1Curve) Name() string {
	return c.params.Name
}

// Helper functions for secp256k1-specific operations

// paddedBytes returns the bytes of a big.Int, padded to the specified length
func paddedBytes(value *big.Int, length int) []byte {
	bytes := value.Bytes()
	if len(bytes) >= length {
		return bytes
	}

	padded := make([]byte, length)
	copy(padded[length-len(bytes):], bytes)
	return padded
}

// VerifyECDSA validates a DER-encoded ECDSA signature over a 32-byte hash
// against a secp256k1 public key point.
func VerifyECDSA(pubKey *Point, hash []byte, sig []byte) bool {
	if len(hash) != 32 {
		return false
	}
	if pubKey == nil || pubKey.X == nil || pubKey.Y == nil {
		return false
	}
	if !btcec.S256().IsOnCurve(pubKey.X, pubKey.Y) {
		return false
	}

	signature, err := ecdsa.ParseSignature(sig)
	if err != nil {
		return false
	}

	var xField, yField btcec.FieldVal
	xField.SetByteSlice(paddedBytes(pubKey.X, 32))
	yField.SetByteSlice(paddedBytes(pubKey.Y, 32))

	btcPubKey := btcec.NewPublicKey(&xField, &yField)

	return signature.Verify(hash, btcPubKey)
}

// SerializeSignature produces the canonical DER encoding of an (r, s) pair.
// Values must already be reduced mod N and non-zero.
func SerializeSignature(r, s *big.Int) []byte {
	var rScalar, sScalar btcec.ModNScalar
	rScalar.SetByteSlice(paddedBytes(r, 32))
	sScalar.SetByteSlice(paddedBytes(s, 32))

	return ecdsa.NewSignature(&rScalar, &sScalar).Serialize()
}
