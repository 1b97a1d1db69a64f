package rpc

import (
	"encoding/hex"
	"errors"
	"net/http"

	"lessonchain/crypto"
	"lessonchain/native/token"
)

func (s *Server) handleTokenGet(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params TokenQueryParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	mint, err := parseAddress(params.Mint, crypto.TokenPrefix)
	if err != nil {
		return nil, invalidParams("invalid mint", err.Error())
	}
	tok, err := s.node.Tokens().Token(mint)
	if err != nil {
		return nil, mapError(err)
	}
	result := TokenResult{
		Mint:          tokenString(tok.Mint),
		Owner:         participantString(tok.Owner),
		MintAuthority: programString(tok.MintAuthority),
		Supply:        tok.Supply,
		Decimals:      tok.Decimals,
		MintedAt:      tok.MintedAt,
	}
	meta, err := s.node.Tokens().Metadata(mint)
	switch {
	case err == nil:
		result.Metadata = &MetadataResult{
			Address:              programString(meta.Address),
			Name:                 meta.Name,
			Symbol:               meta.Symbol,
			URI:                  meta.URI,
			SellerFeeBasisPoints: meta.SellerFeeBasisPoints,
			UpdateAuthority:      programString(meta.UpdateAuthority),
			IsMutable:            meta.IsMutable,
			ContentHash:          "0x" + hex.EncodeToString(meta.ContentHash[:]),
		}
	case errors.Is(err, token.ErrNotFound):
	default:
		return nil, mapError(err)
	}
	return result, nil
}

func (s *Server) handleTokenListByOwner(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params OwnerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	owner, err := parseAddress(params.Owner, crypto.ParticipantPrefix)
	if err != nil {
		return nil, invalidParams("invalid owner", err.Error())
	}
	mints, err := s.node.Tokens().TokensOf(owner)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]string, 0, len(mints))
	for _, mint := range mints {
		out = append(out, tokenString(mint))
	}
	return TokenListResult{Owner: participantString(owner), Mints: out}, nil
}
