package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"lessonchain/crypto"
)

// SigningPayload returns the bytes a participant signs for a call: the
// method name followed by the compacted JSON of the first parameter.
func SigningPayload(method string, params json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(method)
	if err := json.Compact(&buf, params); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SignParams encodes params and appends the RequestAuth produced by key.
func SignParams(key *crypto.PrivateKey, method string, params interface{}) ([]json.RawMessage, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	auth, err := signAuth(key, method, encoded)
	if err != nil {
		return nil, err
	}
	return []json.RawMessage{encoded, auth}, nil
}

// CoSignParams appends a second RequestAuth from key over the same payload.
// A payer other than the caller must co-sign this way.
func CoSignParams(key *crypto.PrivateKey, method string, signed []json.RawMessage) ([]json.RawMessage, error) {
	if len(signed) != 2 {
		return nil, fmt.Errorf("co-signing requires a signed parameter list")
	}
	auth, err := signAuth(key, method, signed[0])
	if err != nil {
		return nil, err
	}
	return append(signed, auth), nil
}

func signAuth(key *crypto.PrivateKey, method string, params json.RawMessage) (json.RawMessage, error) {
	payload, err := SigningPayload(method, params)
	if err != nil {
		return nil, err
	}
	sig, err := key.Sign(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(RequestAuth{
		From:      key.PubKey().Address().String(),
		Signature: "0x" + hex.EncodeToString(sig),
	})
}

// authenticate recovers the caller of a signed request and checks it against
// the declared sender.
func authenticate(req *RPCRequest) ([20]byte, *RPCError) {
	if len(req.Params) < 2 {
		return [20]byte{}, newError(http.StatusUnauthorized, codeUnauthorized, "signed request required", nil)
	}
	return verifyAuth(req, req.Params[1])
}

// authorizePayer resolves the payer named in a signed request. An empty value
// or the caller's own address needs no further proof; any other payer must
// co-sign the request in the third parameter.
func authorizePayer(req *RPCRequest, caller [20]byte, value string) ([20]byte, *RPCError) {
	if strings.TrimSpace(value) == "" {
		return caller, nil
	}
	payer, err := parseAddress(value, crypto.ParticipantPrefix)
	if err != nil {
		return [20]byte{}, invalidParams("invalid payer", err.Error())
	}
	if payer == caller {
		return payer, nil
	}
	if len(req.Params) < 3 {
		return [20]byte{}, newError(http.StatusUnauthorized, codeUnauthorized, "payer signature required", nil)
	}
	signer, rpcErr := verifyAuth(req, req.Params[2])
	if rpcErr != nil {
		return [20]byte{}, rpcErr
	}
	if signer != payer {
		return [20]byte{}, newError(http.StatusUnauthorized, codeUnauthorized, "payer signature does not match payer", nil)
	}
	return payer, nil
}

func verifyAuth(req *RPCRequest, raw json.RawMessage) ([20]byte, *RPCError) {
	var auth RequestAuth
	if err := json.Unmarshal(raw, &auth); err != nil {
		return [20]byte{}, newError(http.StatusUnauthorized, codeUnauthorized, "invalid auth parameter", err.Error())
	}
	from, err := parseAddress(auth.From, crypto.ParticipantPrefix)
	if err != nil {
		return [20]byte{}, newError(http.StatusUnauthorized, codeUnauthorized, "invalid from address", err.Error())
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(auth.Signature), "0x"))
	if err != nil {
		return [20]byte{}, newError(http.StatusUnauthorized, codeUnauthorized, "invalid signature encoding", err.Error())
	}
	payload, err := SigningPayload(req.Method, req.Params[0])
	if err != nil {
		return [20]byte{}, invalidParams("invalid parameter object", err.Error())
	}
	signer, err := crypto.RecoverSigner(payload, sig)
	if err != nil {
		return [20]byte{}, newError(http.StatusUnauthorized, codeUnauthorized, "signature verification failed", err.Error())
	}
	if signer.Raw() != from {
		return [20]byte{}, newError(http.StatusUnauthorized, codeUnauthorized, "signature does not match from address", nil)
	}
	return from, nil
}

// parseAddress decodes a bech32 address and requires the given prefix.
func parseAddress(value string, prefix crypto.AddressPrefix) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("address required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	if addr.Prefix() != prefix {
		return [20]byte{}, fmt.Errorf("address %s must use the %s prefix", trimmed, prefix)
	}
	return addr.Raw(), nil
}
