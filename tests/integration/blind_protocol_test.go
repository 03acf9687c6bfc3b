// Package integration - Full blind signing protocol integration tests
package integration

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/Caqil/blind-ecdsa/pkg/blind"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/curve"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/hdkey"
)

// Deterministic seeds so failures are reproducible
var (
	clientSeed    = []byte("integration-test-client-seed-001")
	custodianSeed = []byte("integration-test-custodian-seed1")
)

func setupSessions(t *testing.T) (curve.Curve, *blind.ClientSession, *blind.CustodianSession, *hdkey.ExtendedKey) {
	t.Helper()

	cv, err := curve.NewCurve(curve.Secp256k1)
	if err != nil {
		t.Fatalf("Failed to create curve: %v", err)
	}

	clientKey, err := hdkey.NewMaster(clientSeed)
	if err != nil {
		t.Fatalf("Failed to create client master key: %v", err)
	}
	custodianKey, err := hdkey.NewMaster(custodianSeed)
	if err != nil {
		t.Fatalf("Failed to create custodian master key: %v", err)
	}

	custodian, err := blind.NewCustodianSession(cv, custodianKey)
	if err != nil {
		t.Fatalf("Failed to create custodian session: %v", err)
	}

	client, err := blind.NewClientSession(cv, clientKey, custodian.PublicKeychain())
	if err != nil {
		t.Fatalf("Failed to create client session: %v", err)
	}

	return cv, client, custodian, custodianKey
}

// TestFullProtocol_MultipleIndices runs the complete protocol for several
// indices and verifies every signature under its own public key
func TestFullProtocol_MultipleIndices(t *testing.T) {
	_, client, custodian, _ := setupSessions(t)

	seenKeys := make(map[string]uint32)

	for _, index := range []uint32{0, 1, 2, 17, 4096, blind.MaxIndex} {
		t.Logf("Running protocol for index %d", index)

		record, err := client.PublicKeyAtIndex(index)
		if err != nil {
			t.Fatalf("Index %d: PublicKeyAtIndex failed: %v", index, err)
		}

		// Each index must yield a distinct public key
		keyID := string(record.PublicKey().Bytes())
		if prev, ok := seenKeys[keyID]; ok {
			t.Fatalf("Indices %d and %d produced the same public key", prev, index)
		}
		seenKeys[keyID] = index

		hash := sha256.Sum256([]byte(fmt.Sprintf("message for index %d", index)))

		blindedHash, err := client.BlindedHash(hash[:], index)
		if err != nil {
			t.Fatalf("Index %d: BlindedHash failed: %v", index, err)
		}

		blindSig, err := custodian.SignBlindedHash(blindedHash, index)
		if err != nil {
			t.Fatalf("Index %d: SignBlindedHash failed: %v", index, err)
		}

		sig, err := client.FinalSignature(blindSig, index)
		if err != nil {
			t.Fatalf("Index %d: FinalSignature failed: %v", index, err)
		}

		if !curve.VerifyECDSA(record.PublicKey(), hash[:], sig) {
			t.Fatalf("Index %d: signature does not verify under T", index)
		}

		// A different hash must not verify
		wrongHash := sha256.Sum256([]byte("some other message"))
		if curve.VerifyECDSA(record.PublicKey(), wrongHash[:], sig) {
			t.Fatalf("Index %d: signature verifies for the wrong message", index)
		}
	}
}

// TestFullProtocol_CanonicalSignatures checks the low-S rule on real
// protocol output across many indices
func TestFullProtocol_CanonicalSignatures(t *testing.T) {
	cv, client, custodian, _ := setupSessions(t)
	halfOrder := new(big.Int).Rsh(cv.Order(), 1)

	for index := uint32(100); index < 120; index++ {
		hash := sha256.Sum256([]byte(fmt.Sprintf("canonical check %d", index)))

		if _, err := client.PublicKeyAtIndex(index); err != nil {
			t.Fatalf("Index %d: PublicKeyAtIndex failed: %v", index, err)
		}
		blindedHash, err := client.BlindedHash(hash[:], index)
		if err != nil {
			t.Fatalf("Index %d: BlindedHash failed: %v", index, err)
		}
		blindSig, err := custodian.SignBlindedHash(blindedHash, index)
		if err != nil {
			t.Fatalf("Index %d: SignBlindedHash failed: %v", index, err)
		}
		sig, err := client.FinalSignature(blindSig, index)
		if err != nil {
			t.Fatalf("Index %d: FinalSignature failed: %v", index, err)
		}

		s := extractS(t, sig)
		if s.Cmp(halfOrder) > 0 {
			t.Errorf("Index %d: s exceeds n/2", index)
		}
	}
}

// extractS pulls the s component out of a DER-encoded signature
func extractS(t *testing.T, sig []byte) *big.Int {
	t.Helper()
	if len(sig) < 8 || sig[0] != 0x30 || sig[2] != 0x02 {
		t.Fatalf("Malformed DER signature: %x", sig)
	}
	rLen := int(sig[3])
	sLen := int(sig[5+rLen])
	return new(big.Int).SetBytes(sig[6+rLen : 6+rLen+sLen])
}

// TestFullProtocol_ViewConsistency verifies that the custodian's private
// derivation matches the client's public view: for the tweaks x, y of the
// children at 2i and 2i+1, (w+x)*G must equal ND(W, 2i) and (w+y)*G must
// equal ND(W, 2i+1)
func TestFullProtocol_ViewConsistency(t *testing.T) {
	cv, _, custodian, custodianKey := setupSessions(t)
	W := custodian.PublicKeychain()

	w, err := custodianKey.PrivateScalar()
	if err != nil {
		t.Fatalf("PrivateScalar failed: %v", err)
	}

	for _, index := range []uint32{0, 3, 1234} {
		for offset, childIdx := range []uint32{2 * index, 2*index + 1} {
			tweak, err := custodianKey.ChildTweak(childIdx)
			if err != nil {
				t.Fatalf("ChildTweak(%d) failed: %v", childIdx, err)
			}

			got, err := cv.ScalarBaseMult(cv.ScalarAdd(w, tweak))
			if err != nil {
				t.Fatalf("ScalarBaseMult failed: %v", err)
			}

			child, err := W.Child(childIdx)
			if err != nil {
				t.Fatalf("Child(%d) failed: %v", childIdx, err)
			}
			want, err := cv.Unmarshal(child.PublicKeyBytes())
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}

			if !got.IsEqual(want) {
				t.Errorf("Index %d point %d: (w+tweak)*G does not match public child", index, offset)
			}
		}
	}
}

// TestFullProtocol_ConcurrentClients exercises one custodian session from
// many goroutines across independent indices
func TestFullProtocol_ConcurrentClients(t *testing.T) {
	_, client, custodian, _ := setupSessions(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for g := 0; g < workers; g++ {
		wg.Add(1)
		go func(index uint32) {
			defer wg.Done()

			record, err := client.PublicKeyAtIndex(index)
			if err != nil {
				errs <- fmt.Errorf("index %d: %w", index, err)
				return
			}

			hash := sha256.Sum256([]byte(fmt.Sprintf("concurrent %d", index)))
			blindedHash, err := client.BlindedHash(hash[:], index)
			if err != nil {
				errs <- fmt.Errorf("index %d: %w", index, err)
				return
			}
			blindSig, err := custodian.SignBlindedHash(blindedHash, index)
			if err != nil {
				errs <- fmt.Errorf("index %d: %w", index, err)
				return
			}
			sig, err := client.FinalSignature(blindSig, index)
			if err != nil {
				errs <- fmt.Errorf("index %d: %w", index, err)
				return
			}
			if !curve.VerifyECDSA(record.PublicKey(), hash[:], sig) {
				errs <- fmt.Errorf("index %d: signature does not verify", index)
			}
		}(uint32(1000 + g))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// TestFullProtocol_GuardedCustodian runs the protocol through an IndexGuard
// and checks that a second request for a consumed index is refused
func TestFullProtocol_GuardedCustodian(t *testing.T) {
	_, client, custodian, _ := setupSessions(t)

	guard, err := blind.NewIndexGuard(custodian, nil)
	if err != nil {
		t.Fatalf("NewIndexGuard failed: %v", err)
	}

	const index = uint32(55)

	record, err := client.PublicKeyAtIndex(index)
	if err != nil {
		t.Fatalf("PublicKeyAtIndex failed: %v", err)
	}

	hash := sha256.Sum256([]byte("guarded integration message"))
	blindedHash, err := client.BlindedHash(hash[:], index)
	if err != nil {
		t.Fatalf("BlindedHash failed: %v", err)
	}

	blindSig, err := guard.SignBlindedHash(blindedHash, index)
	if err != nil {
		t.Fatalf("Guarded sign failed: %v", err)
	}

	sig, err := client.FinalSignature(blindSig, index)
	if err != nil {
		t.Fatalf("FinalSignature failed: %v", err)
	}
	if !curve.VerifyECDSA(record.PublicKey(), hash[:], sig) {
		t.Fatal("Signature does not verify under T")
	}

	if _, err := guard.SignBlindedHash(blindedHash, index); err != blind.ErrIndexReused {
		t.Errorf("Expected ErrIndexReused, got %v", err)
	}
}
