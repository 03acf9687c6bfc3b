package blind

import (
	"fmt"
	"math/big"

	"github.com/Caqil/blind-ecdsa/internal/security"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/curve"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/hdkey"
	"github.com/Caqil/blind-ecdsa/pkg/logger"
)

// CustodianSession is the custodian's ("Bob's") side of the protocol. It
// holds only the custodian's master private key w and re-derives the
// per-index signing scalars p, q on demand; nothing per-index is stored.
// The session is immutable after construction and safe for concurrent use.
//
// The session performs no authentication. The caller must verify the
// requester's identity over a separate channel before invoking
// SignBlindedHash; see IndexGuard for the reuse policy.
type CustodianSession struct {
	cv  curve.Curve
	key *hdkey.ExtendedKey
	log *logger.Logger
}

// NewCustodianSession creates a custodian session from the custodian's
// master private key.
func NewCustodianSession(cv curve.Curve, key *hdkey.ExtendedKey) (*CustodianSession, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}
	if key == nil {
		return nil, ErrNilKey
	}
	if !key.IsPrivate() {
		return nil, ErrKeyNotPrivate
	}

	return &CustodianSession{
		cv:  cv,
		key: key,
		log: logger.Nop(),
	}, nil
}

// WithLogger returns a copy of the session that logs through log
func (s *CustodianSession) WithLogger(log *logger.Logger) *CustodianSession {
	if log == nil {
		return s
	}
	copied := *s
	copied.log = log
	return &copied
}

// PublicKeychain returns the master public key W to hand to clients once,
// out of band. Clients derive the per-index points P, Q from it.
func (s *CustodianSession) PublicKeychain() *hdkey.ExtendedKey {
	return s.key.Neuter()
}

// SignBlindedHash signs the blinded hash for index i and returns the blind
// signature s1 = p*h2 + q as a fixed-width scalar buffer.
//
// The signing scalars are not the BIP32 child private keys of w. The
// client committed to P = ND(W, 2i) and Q = ND(W, 2i+1) as public points,
// and from P = p^-1*G = (w+x)*G it follows that p = (w+x)^-1 and
// q = (w+y)*(w+x)^-1, where x and y are the raw derivation tweaks of those
// children.
func (s *CustodianSession) SignBlindedHash(blindedHash []byte, i uint32) ([]byte, error) {
	if i > MaxIndex {
		return nil, ErrIndexOutOfRange
	}

	h2, err := DecodeScalar(s.cv, blindedHash)
	if err != nil {
		return nil, err
	}

	p, q, err := s.signingScalars(i)
	if err != nil {
		return nil, err
	}
	defer security.SecureZeroBigInts(p, q)

	s1, err := CustodianSign(s.cv, h2, p, q)
	if err != nil {
		return nil, err
	}

	s.log.DebugEvent().Uint32("index", i).Msg("signed blinded hash")

	return EncodeScalar(s1), nil
}

// signingScalars re-derives p = (w+x)^-1 and q = (w+y)*(w+x)^-1 for index i
func (s *CustodianSession) signingScalars(i uint32) (p, q *big.Int, err error) {
	w, err := s.key.PrivateScalar()
	if err != nil {
		return nil, nil, err
	}
	defer security.SecureZeroBigInt(w)

	x, err := s.key.ChildTweak(2 * i)
	if err != nil {
		return nil, nil, fmt.Errorf("derive tweak x for index %d: %w", i, err)
	}
	y, err := s.key.ChildTweak(2*i + 1)
	if err != nil {
		return nil, nil, fmt.Errorf("derive tweak y for index %d: %w", i, err)
	}
	defer security.SecureZeroBigInts(x, y)

	wx := s.cv.ScalarAdd(w, x)
	defer security.SecureZeroBigInt(wx)
	if wx.Sign() == 0 {
		return nil, nil, ErrNonInvertibleScalar
	}

	p, err = s.cv.ScalarInv(wx)
	if err != nil {
		return nil, nil, ErrNonInvertibleScalar
	}

	wy := s.cv.ScalarAdd(w, y)
	defer security.SecureZeroBigInt(wy)
	q = s.cv.ScalarMul(wy, p)

	return p, q, nil
}
