package progress

import "lessonchain/core/state"

// IssueRequest describes one reward token to create.
type IssueRequest struct {
	Mint      [20]byte
	Recipient [20]byte
	Payer     [20]byte
	Metadata  [20]byte
	URI       string
	Name      string
	Symbol    string
}

// Issuer creates reward tokens. Issue runs inside the engine's transaction and
// must write only through tx, to keys it reported from LockKeys, so that the
// token and the claim flag commit or fail together. Issuers must reject reuse
// of a mint identity.
type Issuer interface {
	LockKeys(req IssueRequest) [][]byte
	Issue(tx state.Writer, req IssueRequest) error
}
