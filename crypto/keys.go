package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable part used when rendering addresses.
type AddressPrefix string

const (
	// ParticipantPrefix tags addresses controlled by a private key.
	ParticipantPrefix AddressPrefix = "lrn"
	// ProgramPrefix tags derived addresses owned by a program (records, metadata).
	ProgramPrefix AddressPrefix = "lrnp"
	// TokenPrefix tags reward token identities.
	TokenPrefix AddressPrefix = "lrnt"
)

// AddressLength is the byte length of every address in the system.
const AddressLength = 20

// SignatureLength is the length of a recoverable secp256k1 signature.
const SignatureLength = 65

var (
	ErrInvalidAddressLength = errors.New("crypto: address must be 20 bytes long")
	ErrInvalidSignature     = errors.New("crypto: invalid signature")
)

// Address is a 20-byte identity rendered with a bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  [AddressLength]byte
}

// NewAddress wraps raw bytes with the supplied prefix.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, ErrInvalidAddressLength
	}
	var raw [AddressLength]byte
	copy(raw[:], b)
	return Address{prefix: prefix, bytes: raw}, nil
}

// MustNewAddress is NewAddress for inputs known to be well formed.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// FromRaw wraps a fixed-size address.
func FromRaw(prefix AddressPrefix, raw [AddressLength]byte) Address {
	return Address{prefix: prefix, bytes: raw}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a.bytes[:])
	return out
}

// Raw returns the fixed-size representation used by state records.
func (a Address) Raw() [AddressLength]byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether every byte of the address is zero.
func (a Address) IsZero() bool {
	return a.bytes == [AddressLength]byte{}
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Sign produces a 65-byte recoverable signature over keccak256(payload).
func (k *PrivateKey) Sign(payload []byte) ([]byte, error) {
	return crypto.Sign(crypto.Keccak256(payload), k.PrivateKey)
}

func (k *PublicKey) Address() Address {
	var raw [AddressLength]byte
	copy(raw[:], crypto.PubkeyToAddress(*k.PublicKey).Bytes())
	return FromRaw(ParticipantPrefix, raw)
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// RecoverSigner returns the participant address that produced sig over
// keccak256(payload).
func RecoverSigner(payload, sig []byte) (Address, error) {
	if len(sig) != SignatureLength {
		return Address{}, ErrInvalidSignature
	}
	pub, err := crypto.SigToPub(crypto.Keccak256(payload), sig)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return (&PublicKey{pub}).Address(), nil
}
