// Package hdkey implements BIP32 hierarchical deterministic keys.
//
// Besides the standard hardened and non-hardened child derivation, the
// package exposes ChildTweak: the raw HMAC-SHA512 factor of a derivation
// step before it is added to the parent key. Blind signing custodians need
// that factor on its own; returning a child key where a tweak is expected
// (or the other way round) is the classic correctness bug in this protocol,
// so the two operations are distinct methods.
package hdkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/ripemd160"

	"github.com/Caqil/blind-ecdsa/internal/security"
)

const (
	// HardenedOffset is the first hardened child index per BIP32
	HardenedOffset = uint32(0x80000000)

	// MinSeedBytes and MaxSeedBytes bound master seed material per BIP32
	MinSeedBytes = 16
	MaxSeedBytes = 64
)

// masterHMACKey is the fixed HMAC key for master key generation per BIP32
var masterHMACKey = []byte("Bitcoin seed")

// ExtendedKey is an in-memory BIP32 node: either a private scalar or a
// compressed public point, plus the chain code used to derive children.
type ExtendedKey struct {
	key         []byte // 32-byte private scalar or 33-byte compressed point
	chainCode   []byte // 32 bytes
	depth       byte
	childNumber uint32
	isPrivate   bool
}

// NewMaster creates a master extended private key from seed material
func NewMaster(seed []byte) (*ExtendedKey, error) {
	if len(seed) < MinSeedBytes || len(seed) > MaxSeedBytes {
		return nil, ErrInvalidSeed
	}

	mac := hmac.New(sha512.New, masterHMACKey)
	mac.Write(seed)
	intermediary := mac.Sum(nil)

	keyBytes := intermediary[:32]
	chainCode := intermediary[32:]

	if err := validatePrivateKey(keyBytes); err != nil {
		return nil, err
	}

	return &ExtendedKey{
		key:         keyBytes,
		chainCode:   chainCode,
		depth:       0,
		childNumber: 0,
		isPrivate:   true,
	}, nil
}

// IsPrivate reports whether the key carries private material
func (k *ExtendedKey) IsPrivate() bool {
	return k.isPrivate
}

// Depth returns the derivation depth of this node
func (k *ExtendedKey) Depth() byte {
	return k.depth
}

// ChildNumber returns the index this node was derived at
func (k *ExtendedKey) ChildNumber() uint32 {
	return k.childNumber
}

// PrivateScalar returns the private key as a scalar.
// Fails for public-only keys.
func (k *ExtendedKey) PrivateScalar() (*big.Int, error) {
	if !k.isPrivate {
		return nil, ErrNotPrivate
	}
	return new(big.Int).SetBytes(k.key), nil
}

// PublicKeyBytes returns the SEC compressed public key for this node
func (k *ExtendedKey) PublicKeyBytes() []byte {
	if k.isPrivate {
		return publicForPrivate(k.key)
	}
	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out
}

// Fingerprint returns the first 4 bytes of the hash160 of the public key
func (k *ExtendedKey) Fingerprint() []byte {
	return hash160(k.PublicKeyBytes())[:4]
}

// Neuter returns the public-only form of this key.
// A public key neuters to itself.
func (k *ExtendedKey) Neuter() *ExtendedKey {
	if !k.isPrivate {
		return k
	}
	return &ExtendedKey{
		key:         publicForPrivate(k.key),
		chainCode:   k.chainCode,
		depth:       k.depth,
		childNumber: k.childNumber,
		isPrivate:   false,
	}
}

// Child derives the child key at index i per BIP32. Indices at or above
// HardenedOffset are hardened and require a private parent.
func (k *ExtendedKey) Child(i uint32) (*ExtendedKey, error) {
	il, chainCode, err := k.intermediary(i)
	if err != nil {
		return nil, err
	}

	child := &ExtendedKey{
		chainCode:   chainCode,
		depth:       k.depth + 1,
		childNumber: i,
		isPrivate:   k.isPrivate,
	}

	if k.isPrivate {
		// CKDpriv: child = (IL + parent) mod n
		parent := new(big.Int).SetBytes(k.key)
		sum := new(big.Int).Add(il, parent)
		sum.Mod(sum, btcec.S256().N)
		if sum.Sign() == 0 {
			return nil, ErrInvalidChild
		}
		child.key = paddedBytes(sum, 32)
		return child, nil
	}

	// CKDpub: child = IL*G + parent
	ilPoint := publicForPrivate(paddedBytes(il, 32))
	sum, err := addPublicKeys(ilPoint, k.key)
	if err != nil {
		return nil, err
	}
	child.key = sum
	return child, nil
}

// HardenedChild derives the hardened child at index i (i must be below
// HardenedOffset; the hardened bit is applied here).
func (k *ExtendedKey) HardenedChild(i uint32) (*ExtendedKey, error) {
	if i >= HardenedOffset {
		return nil, ErrIndexOutOfRange
	}
	return k.Child(HardenedOffset | i)
}

// ChildTweak returns the raw derivation factor for child i: the first 32
// bytes of the BIP32 HMAC-SHA512 output, before it is added to the parent
// key. This is NOT the child key. Hardened indices require a private parent.
func (k *ExtendedKey) ChildTweak(i uint32) (*big.Int, error) {
	il, _, err := k.intermediary(i)
	if err != nil {
		return nil, err
	}
	return il, nil
}

// intermediary runs one HMAC-SHA512 derivation step and splits the output
// into the validated key factor IL and the child chain code IR.
func (k *ExtendedKey) intermediary(i uint32) (*big.Int, []byte, error) {
	hardened := i >= HardenedOffset
	if hardened && !k.isPrivate {
		return nil, nil, ErrHardenedFromPublic
	}

	// Hardened children commit to the private key, non-hardened children
	// to the compressed public key
	data := make([]byte, 0, 37)
	if hardened {
		data = append(data, 0x00)
		data = append(data, k.key...)
	} else {
		data = append(data, k.PublicKeyBytes()...)
	}
	var indexBytes [4]byte
	binary.BigEndian.PutUint32(indexBytes[:], i)
	data = append(data, indexBytes[:]...)

	mac := hmac.New(sha512.New, k.chainCode)
	mac.Write(data)
	intermediary := mac.Sum(nil)

	// The hardened-path buffer holds the parent private key
	security.SecureZero(data)

	if err := validatePrivateKey(intermediary[:32]); err != nil {
		// BIP32 declares such children invalid; callers pick another index
		return nil, nil, ErrInvalidChild
	}

	il := new(big.Int).SetBytes(intermediary[:32])
	return il, intermediary[32:], nil
}

// validatePrivateKey rejects zero and values at or above the group order
func validatePrivateKey(key []byte) error {
	v := new(big.Int).SetBytes(key)
	if v.Sign() == 0 || v.Cmp(btcec.S256().N) >= 0 {
		return ErrInvalidKey
	}
	return nil
}

// publicForPrivate returns the compressed public key for a 32-byte private key
func publicForPrivate(key []byte) []byte {
	priv, _ := btcec.PrivKeyFromBytes(key)
	return priv.PubKey().SerializeCompressed()
}

// addPublicKeys adds two compressed public keys as curve points
func addPublicKeys(key1, key2 []byte) ([]byte, error) {
	pub1, err := btcec.ParsePubKey(key1)
	if err != nil {
		return nil, ErrInvalidKey
	}
	pub2, err := btcec.ParsePubKey(key2)
	if err != nil {
		return nil, ErrInvalidKey
	}

	x, y := btcec.S256().Add(pub1.X(), pub1.Y(), pub2.X(), pub2.Y())
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, ErrInvalidChild
	}

	var xField, yField btcec.FieldVal
	xField.SetByteSlice(paddedBytes(x, 32))
	yField.SetByteSlice(paddedBytes(y, 32))

	return btcec.NewPublicKey(&xField, &yField).SerializeCompressed(), nil
}

// hash160 computes RIPEMD160(SHA256(data)) as used for BIP32 fingerprints
func hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	return ripe.Sum(nil)
}

// paddedBytes returns the big-endian bytes of v, left-padded to length
func paddedBytes(v *big.Int, length int) []byte {
	bytes := v.Bytes()
	if len(bytes) >= length {
		return bytes
	}
	padded := make([]byte, length)
	copy(padded[length-len(bytes):], bytes)
	return padded
}
