// Package main demonstrates the full two-party blind signing flow
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/Caqil/blind-ecdsa/pkg/blind"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/curve"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/hdkey"
	"github.com/Caqil/blind-ecdsa/pkg/crypto/rand"
	"github.com/Caqil/blind-ecdsa/pkg/logger"
)

func main() {
	fmt.Println("=== Blind ECDSA Signing Example: Alice and Bob ===")
	fmt.Println()

	cv, err := curve.NewCurve(curve.Secp256k1)
	if err != nil {
		log.Fatalf("create curve: %v", err)
	}

	auditLog := logger.New(&logger.Config{Level: "debug", Pretty: true})

	// Phase 1: each party creates its own master key. Bob hands Alice the
	// public half of his keychain once, out of band.
	fmt.Println("Phase 1: Master key setup...")
	alice, bob := setupSessions(cv, auditLog)
	fmt.Println("  ✓ Alice holds u (private) and W (Bob's public keychain)")
	fmt.Println("  ✓ Bob holds w (private) only")

	// Phase 2: Alice picks an index and derives the public key she will
	// publish. Each index is good for exactly one message.
	const index = uint32(42)
	fmt.Printf("\nPhase 2: Deriving blind public key at index %d...\n", index)
	record, err := alice.PublicKeyAtIndex(index)
	if err != nil {
		log.Fatalf("derive public key: %v", err)
	}
	fmt.Printf("  ✓ T = %s\n", hex.EncodeToString(record.PublicKey().Bytes()))
	fmt.Println("  ✓ Bob cannot recognize T as related to his keychain")

	// Phase 3: Alice blinds her message hash
	fmt.Println("\nPhase 3: Blinding the message...")
	message := []byte("Redeem 1 BTC locked under T")
	hash := sha256.Sum256(message)
	blindedHash, err := alice.BlindedHash(hash[:], index)
	if err != nil {
		log.Fatalf("blind hash: %v", err)
	}
	fmt.Printf("  Message: %s\n", message)
	fmt.Printf("  h2 = %s\n", hex.EncodeToString(blindedHash))

	// Phase 4: Bob signs blindly. The guard refuses a second request for
	// the same index; verifying Alice's identity stays out of band.
	fmt.Println("\nPhase 4: Custodian signing (replay-guarded)...")
	guard, err := blind.NewIndexGuard(bob, auditLog)
	if err != nil {
		log.Fatalf("create guard: %v", err)
	}
	blindSig, err := guard.SignBlindedHash(blindedHash, index)
	if err != nil {
		log.Fatalf("blind sign: %v", err)
	}
	fmt.Printf("  s1 = %s\n", hex.EncodeToString(blindSig))

	if _, err := guard.SignBlindedHash(blindedHash, index); err != nil {
		fmt.Printf("  ✓ Replay refused: %v\n", err)
	}

	// Phase 5: Alice unblinds and finalizes
	fmt.Println("\nPhase 5: Unblinding the signature...")
	sig, err := alice.FinalSignature(blindSig, index)
	if err != nil {
		log.Fatalf("finalize: %v", err)
	}
	fmt.Printf("  DER signature = %s\n", hex.EncodeToString(sig))

	// Phase 6: anyone can verify against T
	fmt.Println("\nPhase 6: Verification...")
	if !curve.VerifyECDSA(record.PublicKey(), hash[:], sig) {
		log.Fatal("❌ Signature verification failed!")
	}
	fmt.Println("  ✓ Signature verifies under T with standard ECDSA")
	fmt.Println("  ✓ Bob never saw the message, T, or the final signature")
}

func setupSessions(cv curve.Curve, auditLog *logger.Logger) (*blind.ClientSession, *blind.CustodianSession) {
	aliceSeed, err := rand.GenerateSeed(32)
	if err != nil {
		log.Fatalf("generate seed: %v", err)
	}
	bobSeed, err := rand.GenerateSeed(32)
	if err != nil {
		log.Fatalf("generate seed: %v", err)
	}

	aliceKey, err := hdkey.NewMaster(aliceSeed)
	if err != nil {
		log.Fatalf("alice master key: %v", err)
	}
	bobKey, err := hdkey.NewMaster(bobSeed)
	if err != nil {
		log.Fatalf("bob master key: %v", err)
	}

	bob, err := blind.NewCustodianSession(cv, bobKey)
	if err != nil {
		log.Fatalf("custodian session: %v", err)
	}
	bob = bob.WithLogger(auditLog)

	alice, err := blind.NewClientSession(cv, aliceKey, bob.PublicKeychain())
	if err != nil {
		log.Fatalf("client session: %v", err)
	}
	alice = alice.WithLogger(auditLog)

	return alice, bob
}
