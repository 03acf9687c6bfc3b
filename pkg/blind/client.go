package blind

import (
	"fmt"
	"math/big"

	"github.com/Caqil/blind-ecdsa/internal/security"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/curve"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/hdkey"
	"github.com/Caqil/blind-ecdsa/pkg/logger"
)

// MaxIndex is the largest usable protocol index. The client derives
// hardened children at 4i..4i+3, and 4i+3 must stay below the hardened
// offset, so the index space is 30 bits. Both sessions enforce the same
// bound so the two sides always agree on valid indices.
const MaxIndex = uint32(1<<29 - 1)

// BlindingRecord is the client's per-index state: the public key T to
// publish, the nonce point K needed at finalization time, and the index.
// It is owned exclusively by the client and never transmitted.
type BlindingRecord struct {
	T     *curve.Point
	K     *curve.Point
	Index uint32
}

// PublicKey returns the public key the final signature will verify under
func (r *BlindingRecord) PublicKey() *curve.Point {
	return r.T
}

// ClientSession is the client's ("Alice's") side of the protocol. It holds
// the client's master private key u and the custodian's master public key W
// (received once, out of band) and derives all per-index parameters from
// them. The session is immutable after construction and safe for
// concurrent use across independent indices.
//
// Each index must be used for at most one message. The session does not
// police reuse; a client that blinds two different hashes at the same index
// forfeits unlinkability for both.
type ClientSession struct {
	cv           curve.Curve
	clientKey    *hdkey.ExtendedKey
	custodianKey *hdkey.ExtendedKey
	log          *logger.Logger
}

// NewClientSession creates a client session from the client's master
// private key and the custodian's master key. The custodian key is
// neutered to its public form; only non-hardened public derivation is
// ever performed on it.
func NewClientSession(cv curve.Curve, clientKey, custodianKey *hdkey.ExtendedKey) (*ClientSession, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}
	if clientKey == nil || custodianKey == nil {
		return nil, ErrNilKey
	}
	if !clientKey.IsPrivate() {
		return nil, ErrKeyNotPrivate
	}

	return &ClientSession{
		cv:           cv,
		clientKey:    clientKey,
		custodianKey: custodianKey.Neuter(),
		log:          logger.Nop(),
	}, nil
}

// WithLogger returns a copy of the session that logs through log.
// Logged events carry indices and fingerprints only, never key material.
func (s *ClientSession) WithLogger(log *logger.Logger) *ClientSession {
	if log == nil {
		return s
	}
	copied := *s
	copied.log = log
	return &copied
}

// PublicKeyAtIndex derives the public key T and nonce point K for index i.
// The result is deterministic: the same session and index always yield the
// same record. The returned record must be retained by the caller until the
// signature for this index has been finalized (or the index abandoned).
func (s *ClientSession) PublicKeyAtIndex(i uint32) (*BlindingRecord, error) {
	if i > MaxIndex {
		return nil, ErrIndexOutOfRange
	}

	a, b, c, d, err := s.blindingFactors(i)
	if err != nil {
		return nil, err
	}
	defer security.SecureZeroBigInts(a, b, c, d)

	params, err := s.custodianParams(i)
	if err != nil {
		return nil, err
	}

	kn, err := ClientKeyAndNonce(s.cv, a, b, c, d, params.P, params.Q)
	if err != nil {
		return nil, err
	}

	s.log.DebugEvent().Uint32("index", i).Msg("derived blind public key")

	return &BlindingRecord{T: kn.T, K: kn.K, Index: i}, nil
}

// BlindedHash blinds a 32-byte message digest for index i. The result is a
// fixed-width scalar buffer to send to the custodian together with i.
func (s *ClientSession) BlindedHash(hash []byte, i uint32) ([]byte, error) {
	if i > MaxIndex {
		return nil, ErrIndexOutOfRange
	}

	a, err := s.blindingFactor(i, 0)
	if err != nil {
		return nil, err
	}
	b, err := s.blindingFactor(i, 1)
	if err != nil {
		return nil, err
	}
	defer security.SecureZeroBigInts(a, b)

	h2, err := BlindHash(s.cv, hash, a, b)
	if err != nil {
		return nil, err
	}

	s.log.DebugEvent().Uint32("index", i).Msg("blinded message hash")

	return EncodeScalar(h2), nil
}

// FinalSignature unblinds the custodian's blind signature for index i and
// returns the canonical DER-encoded ECDSA signature, verifiable under the
// public key from PublicKeyAtIndex(i). The nonce point is recomputed from
// the master keys, so the BlindingRecord itself is not required here.
func (s *ClientSession) FinalSignature(blindSig []byte, i uint32) ([]byte, error) {
	if i > MaxIndex {
		return nil, ErrIndexOutOfRange
	}

	s1, err := DecodeScalar(s.cv, blindSig)
	if err != nil {
		return nil, err
	}

	record, err := s.PublicKeyAtIndex(i)
	if err != nil {
		return nil, fmt.Errorf("recompute nonce point: %w", err)
	}

	c, err := s.blindingFactor(i, 2)
	if err != nil {
		return nil, err
	}
	d, err := s.blindingFactor(i, 3)
	if err != nil {
		return nil, err
	}
	defer security.SecureZeroBigInts(c, d)

	s2, err := UnblindSignature(s.cv, s1, c, d)
	if err != nil {
		return nil, err
	}

	sig, err := Finalize(s.cv, Kx(s.cv, record.K), s2)
	if err != nil {
		return nil, err
	}

	s.log.DebugEvent().Uint32("index", i).Msg("finalized signature")

	return sig, nil
}

// blindingFactor derives one of the four hardened blinding factors for
// index i: a at offset 0, b at 1, c at 2, d at 3.
func (s *ClientSession) blindingFactor(i uint32, offset uint32) (*big.Int, error) {
	child, err := s.clientKey.HardenedChild(4*i + offset)
	if err != nil {
		return nil, fmt.Errorf("derive blinding factor %d for index %d: %w", offset, i, err)
	}
	return child.PrivateScalar()
}

// blindingFactors derives all four blinding factors a, b, c, d for index i
func (s *ClientSession) blindingFactors(i uint32) (a, b, c, d *big.Int, err error) {
	if a, err = s.blindingFactor(i, 0); err != nil {
		return nil, nil, nil, nil, err
	}
	if b, err = s.blindingFactor(i, 1); err != nil {
		return nil, nil, nil, nil, err
	}
	if c, err = s.blindingFactor(i, 2); err != nil {
		return nil, nil, nil, nil, err
	}
	if d, err = s.blindingFactor(i, 3); err != nil {
		return nil, nil, nil, nil, err
	}
	return a, b, c, d, nil
}

// custodianParams derives the custodian's committed points for index i as
// the non-hardened BIP32 public children of W at 2i and 2i+1.
func (s *ClientSession) custodianParams(i uint32) (*CustodianParams, error) {
	pChild, err := s.custodianKey.Child(2 * i)
	if err != nil {
		return nil, fmt.Errorf("derive custodian point P for index %d: %w", i, err)
	}
	qChild, err := s.custodianKey.Child(2*i + 1)
	if err != nil {
		return nil, fmt.Errorf("derive custodian point Q for index %d: %w", i, err)
	}

	P, err := s.cv.Unmarshal(pChild.PublicKeyBytes())
	if err != nil {
		return nil, err
	}
	Q, err := s.cv.Unmarshal(qChild.PublicKeyBytes())
	if err != nil {
		return nil, err
	}

	return &CustodianParams{P: P, Q: Q}, nil
}
