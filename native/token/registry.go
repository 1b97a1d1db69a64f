package token

import (
	"errors"
	"fmt"
	"time"

	"lessonchain/core/state"
	"lessonchain/native/progress"
)

var (
	mintKeyPrefix     = "token/mint/"
	metadataKeyPrefix = "token/metadata/"
	ownerKeyPrefix    = "token/owner/"
)

func mintKey(mint [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", mintKeyPrefix, mint))
}

func metadataKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", metadataKeyPrefix, addr))
}

func ownerKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", ownerKeyPrefix, owner))
}

var _ progress.Issuer = (*Registry)(nil)

// Registry records reward tokens and their metadata. It implements
// progress.Issuer and writes only through the transaction it is handed.
type Registry struct {
	state             state.Reader
	metadataProgramID [20]byte
	mintAuthority     [20]byte
	nowFn             func() int64
}

// NewRegistry constructs a registry that verifies metadata addresses under
// metadataProgramID and stamps mintAuthority on every token.
func NewRegistry(metadataProgramID, mintAuthority [20]byte) *Registry {
	return &Registry{
		metadataProgramID: metadataProgramID,
		mintAuthority:     mintAuthority,
		nowFn:             func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the reader used by queries.
func (r *Registry) SetState(reader state.Reader) { r.state = reader }

// SetNowFunc overrides the clock used for MintedAt.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) now() uint64 {
	if r.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	ts := r.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// LockKeys reports every key Issue may write for req.
func (r *Registry) LockKeys(req progress.IssueRequest) [][]byte {
	return [][]byte{mintKey(req.Mint), metadataKey(req.Metadata), ownerKey(req.Recipient)}
}

// Issue creates the token, its metadata and the owner index entry. Nothing is
// written unless every check passes.
func (r *Registry) Issue(tx state.Writer, req progress.IssueRequest) error {
	if req.Mint == ([20]byte{}) {
		return ErrMintRequired
	}
	if req.Recipient == ([20]byte{}) {
		return ErrRecipientRequired
	}
	if err := ValidateFields(req.Name, req.Symbol, req.URI); err != nil {
		return err
	}
	expected, err := progress.DeriveMetadataAddress(r.metadataProgramID, req.Mint)
	if err != nil {
		return err
	}
	if expected != req.Metadata {
		return ErrMetadataAddressMismatch
	}
	if exists, err := tx.KVGet(mintKey(req.Mint), nil); err != nil {
		return err
	} else if exists {
		return ErrTokenExists
	}
	if exists, err := tx.KVGet(metadataKey(req.Metadata), nil); err != nil {
		return err
	} else if exists {
		return ErrMetadataExists
	}

	var index ownerIndex
	if _, err := tx.KVGet(ownerKey(req.Recipient), &index); err != nil {
		return err
	}
	index.Mints = append(index.Mints, req.Mint)

	tok := &Token{
		Mint:          req.Mint,
		Owner:         req.Recipient,
		MintAuthority: r.mintAuthority,
		Supply:        1,
		Decimals:      0,
		MintedAt:      r.now(),
	}
	meta := &Metadata{
		Address:         req.Metadata,
		Mint:            req.Mint,
		Name:            req.Name,
		Symbol:          req.Symbol,
		URI:             req.URI,
		UpdateAuthority: r.mintAuthority,
		IsMutable:       true,
		ContentHash:     ContentHash(req.Name, req.Symbol, req.URI),
	}
	if err := tx.KVPut(mintKey(req.Mint), tok); err != nil {
		return err
	}
	if err := tx.KVPut(metadataKey(req.Metadata), meta); err != nil {
		return err
	}
	return tx.KVPut(ownerKey(req.Recipient), &index)
}

func (r *Registry) reader() (state.Reader, error) {
	if r == nil || r.state == nil {
		return nil, errors.New("token registry: state not configured")
	}
	return r.state, nil
}

// Token returns the token recorded for mint.
func (r *Registry) Token(mint [20]byte) (*Token, error) {
	reader, err := r.reader()
	if err != nil {
		return nil, err
	}
	var tok Token
	ok, err := reader.KVGet(mintKey(mint), &tok)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return &tok, nil
}

// Metadata returns the metadata bound to mint.
func (r *Registry) Metadata(mint [20]byte) (*Metadata, error) {
	reader, err := r.reader()
	if err != nil {
		return nil, err
	}
	addr, err := progress.DeriveMetadataAddress(r.metadataProgramID, mint)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	ok, err := reader.KVGet(metadataKey(addr), &meta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return &meta, nil
}

// TokensOf lists the mints owned by owner in issuance order.
func (r *Registry) TokensOf(owner [20]byte) ([][20]byte, error) {
	reader, err := r.reader()
	if err != nil {
		return nil, err
	}
	var index ownerIndex
	if _, err := reader.KVGet(ownerKey(owner), &index); err != nil {
		return nil, err
	}
	if index.Mints == nil {
		return [][20]byte{}, nil
	}
	return index.Mints, nil
}
