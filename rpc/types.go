package rpc

import (
	"encoding/json"

	"lessonchain/services/indexer"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeRateLimited    = -32020
	codeUnauthorized   = -32061
	codeInvalidLesson  = -32062
	codeConflict       = -32063
	codeNotFound       = -32064
	codeIssuanceFailed = -32065
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	status int
}

func (e *RPCError) Error() string { return e.Message }

// RequestAuth is the second positional parameter of every signed call.
type RequestAuth struct {
	From      string `json:"from"`
	Signature string `json:"signature"`
}

// AddressParams selects a participant.
type AddressParams struct {
	Participant string `json:"participant"`
}

// InitializeParams are the arguments of progress_initialize.
type InitializeParams struct {
	Participant string `json:"participant"`
	Payer       string `json:"payer,omitempty"`
}

// CompleteLessonParams are the arguments of progress_completeLesson. Record
// defaults to the signer's derived record address.
type CompleteLessonParams struct {
	Record   string `json:"record,omitempty"`
	LessonID *int   `json:"lessonId"`
}

// MintRewardParams are the arguments of progress_mintReward.
type MintRewardParams struct {
	Record   string `json:"record,omitempty"`
	LessonID *int   `json:"lessonId"`
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Payer    string `json:"payer,omitempty"`
}

// ProgressQueryParams select a record either directly or by participant.
type ProgressQueryParams struct {
	Record      string `json:"record,omitempty"`
	Participant string `json:"participant,omitempty"`
}

// TokenQueryParams select a reward token.
type TokenQueryParams struct {
	Mint string `json:"mint"`
}

// OwnerParams select a token owner.
type OwnerParams struct {
	Owner string `json:"owner"`
}

// HistoryParams are the arguments of progress_history.
type HistoryParams struct {
	Participant string `json:"participant"`
	Limit       int    `json:"limit,omitempty"`
}

type AddressResult struct {
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
}

type InitializeResult struct {
	Address string `json:"address"`
}

type CompleteLessonResult struct {
	OK bool `json:"ok"`
}

type MintRewardResult struct {
	Mint     string `json:"mint"`
	Metadata string `json:"metadata"`
}

// ProgressResult mirrors a stored progress record.
type ProgressResult struct {
	Address          string  `json:"address"`
	Owner            string  `json:"owner"`
	CompletedLessons [5]bool `json:"completedLessons"`
	NftsClaimed      [5]bool `json:"nftsClaimed"`
	Bump             uint8   `json:"bump"`
}

type MetadataResult struct {
	Address              string `json:"address"`
	Name                 string `json:"name"`
	Symbol               string `json:"symbol"`
	URI                  string `json:"uri"`
	SellerFeeBasisPoints uint16 `json:"sellerFeeBasisPoints"`
	UpdateAuthority      string `json:"updateAuthority"`
	IsMutable            bool   `json:"isMutable"`
	ContentHash          string `json:"contentHash"`
}

type TokenResult struct {
	Mint          string          `json:"mint"`
	Owner         string          `json:"owner"`
	MintAuthority string          `json:"mintAuthority"`
	Supply        uint64          `json:"supply"`
	Decimals      uint8           `json:"decimals"`
	MintedAt      uint64          `json:"mintedAt"`
	Metadata      *MetadataResult `json:"metadata,omitempty"`
}

type TokenListResult struct {
	Owner string   `json:"owner"`
	Mints []string `json:"mints"`
}

type HistoryResult struct {
	Participant string          `json:"participant"`
	Events      []indexer.Entry `json:"events"`
}
