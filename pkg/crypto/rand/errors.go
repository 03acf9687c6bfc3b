package rand

import "errors"

var (
	// ErrInvalidLength is returned when requested length is invalid
	ErrInvalidLength = errors.New("invalid length: must be positive")

	// ErrNilMax is returned when max parameter is nil
	ErrNilMax = errors.New("max cannot be nil")

	// ErrInvalidMax is returned when max is not positive
	ErrInvalidMax = errors.New("max must be positive")

	// ErrInvalidSeedLength is returned when a BIP32 seed length is out of range
	ErrInvalidSeedLength = errors.New("seed length must be between 16 and 64 bytes")
)
