// Package security provides security utilities for protecting sensitive data
package security

import (
	"crypto/subtle"
	"math/big"
	"runtime"
)

// SecureZero securely zeros out a byte slice to prevent secrets from remaining in memory
// This uses a method that prevents the compiler from optimizing away the zeroing
func SecureZero(data []byte) {
	if len(data) == 0 {
		return
	}

	// Use subtle.ConstantTimeCopy to ensure compiler doesn't optimize away
	zeros := make([]byte, len(data))
	subtle.ConstantTimeCopy(1, data, zeros)

	// Force a memory barrier
	runtime.KeepAlive(data)
}

// SecureZeroBigInt securely zeros a big.Int by clearing its internal buffer
// Note: Go's big.Int doesn't expose internal bytes directly
// Best practice: Set to zero and rely on garbage collector
func SecureZeroBigInt(b *big.Int) {
	if b == nil {
		return
	}

	// Set to zero - this is the most practical approach in Go
	// The internal bytes will be garbage collected
	b.SetInt64(0)

	// Force memory barrier to prevent compiler optimization
	runtime.KeepAlive(b)
}

// SecureZeroBigInts zeros a list of big.Int scalars
func SecureZeroBigInts(values ...*big.Int) {
	for _, v := range values {
		SecureZeroBigInt(v)
	}
}

