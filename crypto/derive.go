package crypto

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeeds bounds the number of seeds accepted by address derivation.
	MaxSeeds = 16
	// MaxSeedLength bounds the length of an individual seed.
	MaxSeedLength = 32
)

var derivationMarker = []byte("ProgramDerivedAddress")

var (
	ErrMaxSeedLength              = errors.New("crypto: seed length exceeds limits")
	ErrInvalidSeeds               = errors.New("crypto: derived address lies on the curve")
	ErrAddressDerivationExhausted = errors.New("crypto: unable to find a viable bump seed")
)

// CreateProgramAddress hashes seeds, the bump and programID into a 20-byte
// address. The digest must not be the x-coordinate of a secp256k1 point,
// otherwise a private key could exist for it and ErrInvalidSeeds is returned.
func CreateProgramAddress(seeds [][]byte, bump uint8, programID [AddressLength]byte) ([AddressLength]byte, error) {
	var out [AddressLength]byte
	if len(seeds) > MaxSeeds {
		return out, ErrMaxSeedLength
	}
	parts := make([][]byte, 0, len(seeds)+3)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return out, ErrMaxSeedLength
		}
		parts = append(parts, seed)
	}
	parts = append(parts, []byte{bump}, programID[:], derivationMarker)
	digest := crypto.Keccak256(parts...)
	if onCurve(digest) {
		return out, ErrInvalidSeeds
	}
	copy(out[:], digest[len(digest)-AddressLength:])
	return out, nil
}

// FindProgramAddress searches bumps from 255 downwards and returns the first
// address accepted by CreateProgramAddress together with the bump used.
func FindProgramAddress(seeds [][]byte, programID [AddressLength]byte) ([AddressLength]byte, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(seeds, uint8(bump), programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return [AddressLength]byte{}, 0, err
		}
	}
	return [AddressLength]byte{}, 0, ErrAddressDerivationExhausted
}

// ProgramIDFromLabel derives a stable program identifier from a human label so
// deployments can agree on ids without distributing key material.
func ProgramIDFromLabel(label string) ([AddressLength]byte, error) {
	var out [AddressLength]byte
	if label == "" {
		return out, fmt.Errorf("crypto: program label required")
	}
	digest := crypto.Keccak256([]byte("program:"), []byte(label))
	copy(out[:], digest[len(digest)-AddressLength:])
	return out, nil
}

func onCurve(x []byte) bool {
	compressed := make([]byte, 0, 33)
	compressed = append(compressed, 0x02)
	compressed = append(compressed, x...)
	_, err := crypto.DecompressPubkey(compressed)
	return err == nil
}
