package blind

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/Caqil/blind-ecdsa/pkg/crypto/curve"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/hdkey"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/rand"
)

func testSessions(t *testing.T) (*ClientSession, *CustodianSession) {
	t.Helper()
	cv := testCurve(t)

	clientSeed, err := rand.GenerateSeed(32)
	if err != nil {
		t.Fatalf("Failed to generate client seed: %v", err)
	}
	custodianSeed, err := rand.GenerateSeed(32)
	if err != nil {
		t.Fatalf("Failed to generate custodian seed: %v", err)
	}

	clientKey, err := hdkey.NewMaster(clientSeed)
	if err != nil {
		t.Fatalf("Failed to create client master key: %v", err)
	}
	custodianKey, err := hdkey.NewMaster(custodianSeed)
	if err != nil {
		t.Fatalf("Failed to create custodian master key: %v", err)
	}

	custodian, err := NewCustodianSession(cv, custodianKey)
	if err != nil {
		t.Fatalf("Failed to create custodian session: %v", err)
	}

	client, err := NewClientSession(cv, clientKey, custodian.PublicKeychain())
	if err != nil {
		t.Fatalf("Failed to create client session: %v", err)
	}

	return client, custodian
}

// TestSessionRoundTrip runs the full protocol through both sessions and
// verifies the final signature under the client's public key
func TestSessionRoundTrip(t *testing.T) {
	client, custodian := testSessions(t)

	const index = uint32(7)

	record, err := client.PublicKeyAtIndex(index)
	if err != nil {
		t.Fatalf("PublicKeyAtIndex failed: %v", err)
	}

	hash := sha256.Sum256([]byte("redeem the escrow output"))

	blindedHash, err := client.BlindedHash(hash[:], index)
	if err != nil {
		t.Fatalf("BlindedHash failed: %v", err)
	}
	if len(blindedHash) != ScalarSize {
		t.Fatalf("Expected %d-byte blinded hash, got %d", ScalarSize, len(blindedHash))
	}

	blindSig, err := custodian.SignBlindedHash(blindedHash, index)
	if err != nil {
		t.Fatalf("SignBlindedHash failed: %v", err)
	}

	sig, err := client.FinalSignature(blindSig, index)
	if err != nil {
		t.Fatalf("FinalSignature failed: %v", err)
	}

	if !curve.VerifyECDSA(record.PublicKey(), hash[:], sig) {
		t.Fatal("Final signature does not verify under T")
	}
}

// TestSessionDeterminism tests that PublicKeyAtIndex is repeatable
func TestSessionDeterminism(t *testing.T) {
	client, _ := testSessions(t)

	r1, err := client.PublicKeyAtIndex(3)
	if err != nil {
		t.Fatalf("PublicKeyAtIndex failed: %v", err)
	}
	r2, err := client.PublicKeyAtIndex(3)
	if err != nil {
		t.Fatalf("PublicKeyAtIndex failed: %v", err)
	}

	if !r1.T.IsEqual(r2.T) {
		t.Error("T differs between calls for the same index")
	}
	if !r1.K.IsEqual(r2.K) {
		t.Error("K differs between calls for the same index")
	}
}

// TestSessionDistinctIndices tests that different indices yield different keys
func TestSessionDistinctIndices(t *testing.T) {
	client, _ := testSessions(t)

	r1, err := client.PublicKeyAtIndex(1)
	if err != nil {
		t.Fatalf("PublicKeyAtIndex failed: %v", err)
	}
	r2, err := client.PublicKeyAtIndex(2)
	if err != nil {
		t.Fatalf("PublicKeyAtIndex failed: %v", err)
	}

	if r1.T.IsEqual(r2.T) {
		t.Error("Distinct indices produced the same public key")
	}
	if r1.K.IsEqual(r2.K) {
		t.Error("Distinct indices produced the same nonce point")
	}
}

// TestCustodianDerivationConsistency tests that the custodian's
// independently derived p, q match the points the client sees:
// P = p^-1*G and Q = q*P where P, Q are the public children of W
func TestCustodianDerivationConsistency(t *testing.T) {
	client, custodian := testSessions(t)
	cv := client.cv

	for _, index := range []uint32{0, 1, 500} {
		p, q, err := custodian.signingScalars(index)
		if err != nil {
			t.Fatalf("signingScalars(%d) failed: %v", index, err)
		}

		params, err := client.custodianParams(index)
		if err != nil {
			t.Fatalf("custodianParams(%d) failed: %v", index, err)
		}

		pInv, err := cv.ScalarInv(p)
		if err != nil {
			t.Fatalf("ScalarInv failed: %v", err)
		}
		wantP, err := cv.ScalarBaseMult(pInv)
		if err != nil {
			t.Fatalf("ScalarBaseMult failed: %v", err)
		}
		if !params.P.IsEqual(wantP) {
			t.Errorf("Index %d: client P does not equal p^-1*G", index)
		}

		wantQ, err := cv.ScalarMult(params.P, q)
		if err != nil {
			t.Fatalf("ScalarMult failed: %v", err)
		}
		if !params.Q.IsEqual(wantQ) {
			t.Errorf("Index %d: client Q does not equal q*P", index)
		}
	}
}

// TestSessionIndexOutOfRange tests the shared index bound
func TestSessionIndexOutOfRange(t *testing.T) {
	client, custodian := testSessions(t)

	if _, err := client.PublicKeyAtIndex(MaxIndex + 1); err != ErrIndexOutOfRange {
		t.Errorf("PublicKeyAtIndex: expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := client.BlindedHash(make([]byte, HashSize), MaxIndex+1); err != ErrIndexOutOfRange {
		t.Errorf("BlindedHash: expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := client.FinalSignature(make([]byte, ScalarSize), MaxIndex+1); err != ErrIndexOutOfRange {
		t.Errorf("FinalSignature: expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := custodian.SignBlindedHash(make([]byte, ScalarSize), MaxIndex+1); err != ErrIndexOutOfRange {
		t.Errorf("SignBlindedHash: expected ErrIndexOutOfRange, got %v", err)
	}
}

// TestSessionMalformedBuffers tests that length checks run before any
// derivation or arithmetic
func TestSessionMalformedBuffers(t *testing.T) {
	client, custodian := testSessions(t)

	if _, err := custodian.SignBlindedHash(make([]byte, 16), 1); err != ErrInvalidScalarLength {
		t.Errorf("Expected ErrInvalidScalarLength, got %v", err)
	}
	if _, err := client.FinalSignature(make([]byte, 16), 1); err != ErrInvalidScalarLength {
		t.Errorf("Expected ErrInvalidScalarLength, got %v", err)
	}
	if _, err := client.BlindedHash(make([]byte, 16), 1); err != ErrInvalidHashLength {
		t.Errorf("Expected ErrInvalidHashLength, got %v", err)
	}
}

// TestSessionConstructors tests constructor validation
func TestSessionConstructors(t *testing.T) {
	cv := testCurve(t)

	seed, err := rand.GenerateSeed(32)
	if err != nil {
		t.Fatalf("Failed to generate seed: %v", err)
	}
	key, err := hdkey.NewMaster(seed)
	if err != nil {
		t.Fatalf("Failed to create master key: %v", err)
	}

	if _, err := NewClientSession(nil, key, key); err != ErrNilCurve {
		t.Errorf("Expected ErrNilCurve, got %v", err)
	}
	if _, err := NewClientSession(cv, nil, key); err != ErrNilKey {
		t.Errorf("Expected ErrNilKey, got %v", err)
	}
	if _, err := NewClientSession(cv, key.Neuter(), key); err != ErrKeyNotPrivate {
		t.Errorf("Expected ErrKeyNotPrivate, got %v", err)
	}

	if _, err := NewCustodianSession(nil, key); err != ErrNilCurve {
		t.Errorf("Expected ErrNilCurve, got %v", err)
	}
	if _, err := NewCustodianSession(cv, nil); err != ErrNilKey {
		t.Errorf("Expected ErrNilKey, got %v", err)
	}
	if _, err := NewCustodianSession(cv, key.Neuter()); err != ErrKeyNotPrivate {
		t.Errorf("Expected ErrKeyNotPrivate, got %v", err)
	}
}

// TestIndexGuardRefusesReuse tests the custodian-side replay policy
func TestIndexGuardRefusesReuse(t *testing.T) {
	client, custodian := testSessions(t)

	guard, err := NewIndexGuard(custodian, nil)
	if err != nil {
		t.Fatalf("NewIndexGuard failed: %v", err)
	}

	hash := sha256.Sum256([]byte("guarded message"))
	blindedHash, err := client.BlindedHash(hash[:], 9)
	if err != nil {
		t.Fatalf("BlindedHash failed: %v", err)
	}

	first, err := guard.SignBlindedHash(blindedHash, 9)
	if err != nil {
		t.Fatalf("First sign failed: %v", err)
	}

	if _, err := guard.SignBlindedHash(blindedHash, 9); err != ErrIndexReused {
		t.Errorf("Expected ErrIndexReused, got %v", err)
	}

	// A failed request must not burn the index
	if _, err := guard.SignBlindedHash(make([]byte, 16), 10); err != ErrInvalidScalarLength {
		t.Errorf("Expected ErrInvalidScalarLength, got %v", err)
	}
	second, err := guard.SignBlindedHash(blindedHash, 10)
	if err != nil {
		t.Errorf("Index 10 should still be usable after failed request: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("Different indices produced identical blind signatures")
	}

	// MarkUsed reserves indices without signing
	guard.MarkUsed(11)
	if _, err := guard.SignBlindedHash(blindedHash, 11); err != ErrIndexReused {
		t.Errorf("Expected ErrIndexReused for restored index, got %v", err)
	}
}
