package token

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"lukechampine.com/blake3"
)

// Metadata field limits, in bytes.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

var (
	ErrMintRequired            = errors.New("token: mint identity required")
	ErrRecipientRequired       = errors.New("token: recipient required")
	ErrTokenExists             = errors.New("token: mint already exists")
	ErrMetadataExists          = errors.New("token: metadata already exists")
	ErrMetadataAddressMismatch = errors.New("token: metadata address does not match mint")
	ErrNameTooLong             = fmt.Errorf("token: name exceeds %d bytes", MaxNameLength)
	ErrSymbolTooLong           = fmt.Errorf("token: symbol exceeds %d bytes", MaxSymbolLength)
	ErrURITooLong              = fmt.Errorf("token: uri exceeds %d bytes", MaxURILength)
	ErrInvalidEncoding         = errors.New("token: metadata must be valid utf-8")
	ErrNotFound                = errors.New("token: not found")
)

// Token is a non-fungible token: supply one, zero decimals.
type Token struct {
	Mint          [20]byte
	Owner         [20]byte
	MintAuthority [20]byte
	Supply        uint64
	Decimals      uint8
	MintedAt      uint64
}

// Metadata holds the descriptive fields recorded alongside a token.
type Metadata struct {
	Address              [20]byte
	Mint                 [20]byte
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	UpdateAuthority      [20]byte
	IsMutable            bool
	ContentHash          [32]byte
}

type ownerIndex struct {
	Mints [][20]byte
}

// ValidateFields checks the metadata limits applied at issuance.
func ValidateFields(name, symbol, uri string) error {
	for _, field := range []string{name, symbol, uri} {
		if !utf8.ValidString(field) {
			return ErrInvalidEncoding
		}
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if len(symbol) > MaxSymbolLength {
		return ErrSymbolTooLong
	}
	if len(uri) > MaxURILength {
		return ErrURITooLong
	}
	return nil
}

// ContentHash commits to the descriptive fields so clients can check that
// off-ledger copies of the metadata match.
func ContentHash(name, symbol, uri string) [32]byte {
	buf := make([]byte, 0, len(name)+len(symbol)+len(uri)+2)
	buf = append(buf, name...)
	buf = append(buf, 0)
	buf = append(buf, symbol...)
	buf = append(buf, 0)
	buf = append(buf, uri...)
	return blake3.Sum256(buf)
}
