package progress

import (
	"fmt"
	"time"

	"lessonchain/core/events"
	"lessonchain/core/state"
	"lessonchain/core/types"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	Update(lockKeys [][]byte, fn func(tx *state.Txn) error) error
}

// Observer receives the outcome of every engine operation.
type Observer interface {
	Observe(operation string, duration time.Duration, err error)
}

// Engine applies the progress state transitions. Every operation re-reads the
// record inside a state transaction; nothing is cached between calls.
//
// Checks run in a fixed order: the record address must be the one derived for
// the caller, the record must exist and be owned by the caller, the lesson id
// must be in range, and only then are the slot flags inspected.
type Engine struct {
	state             engineState
	issuer            Issuer
	emitter           events.Emitter
	observer          Observer
	programID         [20]byte
	metadataProgramID [20]byte
}

// NewEngine constructs a progress engine for the given program ids.
func NewEngine(programID, metadataProgramID [20]byte) *Engine {
	return &Engine{
		emitter:           events.NoopEmitter{},
		programID:         programID,
		metadataProgramID: metadataProgramID,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetIssuer configures the reward issuer invoked by MintReward.
func (e *Engine) SetIssuer(issuer Issuer) { e.issuer = issuer }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetObserver configures operation instrumentation.
func (e *Engine) SetObserver(observer Observer) { e.observer = observer }

// ProgramID returns the program id records are derived under.
func (e *Engine) ProgramID() [20]byte { return e.programID }

// MetadataProgramID returns the program id metadata records are derived under.
func (e *Engine) MetadataProgramID() [20]byte { return e.metadataProgramID }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

// emitOnCommit delivers evt once tx commits, before the record lock is
// released, so events for one record arrive in commit order.
func (e *Engine) emitOnCommit(tx *state.Txn, evt *types.Event) {
	tx.AfterCommit(func() { e.emit(evt) })
}

func (e *Engine) observe(operation string, start time.Time, err error) {
	if e == nil || e.observer == nil {
		return
	}
	e.observer.Observe(operation, time.Since(start), err)
}

// RecordAddress returns the deterministic progress record address for
// participant.
func (e *Engine) RecordAddress(participant [20]byte) ([20]byte, uint8, error) {
	return DeriveRecordAddress(e.programID, participant)
}

func (e *Engine) authorize(caller, record [20]byte) error {
	expected, _, err := e.RecordAddress(caller)
	if err != nil {
		return err
	}
	if expected != record {
		return ErrUnauthorized
	}
	return nil
}

func loadRecord(r state.Reader, key []byte) (*ProgressRecord, error) {
	var rec ProgressRecord
	ok, err := r.KVGet(key, &rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Initialize creates the progress record for participant with every flag
// cleared. payer is recorded as the party funding the record; a zero payer
// means the participant pays. A second call fails with ErrAlreadyInitialized
// and leaves the record untouched.
func (e *Engine) Initialize(participant, payer [20]byte) (addr [20]byte, err error) {
	start := time.Now()
	defer func() { e.observe("initialize", start, err) }()

	if e == nil || e.state == nil {
		return [20]byte{}, errNilState
	}
	if participant == ([20]byte{}) {
		return [20]byte{}, errParticipantNeeded
	}
	if payer == ([20]byte{}) {
		payer = participant
	}
	record, bump, err := e.RecordAddress(participant)
	if err != nil {
		return [20]byte{}, err
	}
	key := recordKey(record)
	err = e.state.Update([][]byte{key}, func(tx *state.Txn) error {
		exists, err := tx.KVGet(key, nil)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyInitialized
		}
		if err := tx.KVPut(key, newRecord(participant, bump)); err != nil {
			return err
		}
		e.emitOnCommit(tx, UserInitializedEvent(participant, record, payer))
		return nil
	})
	if err != nil {
		return [20]byte{}, err
	}
	return record, nil
}

// CompleteLesson marks lessonID complete on the caller's record.
func (e *Engine) CompleteLesson(caller, record [20]byte, lessonID int) (err error) {
	start := time.Now()
	defer func() { e.observe("complete_lesson", start, err) }()

	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.authorize(caller, record); err != nil {
		return err
	}
	key := recordKey(record)
	err = e.state.Update([][]byte{key}, func(tx *state.Txn) error {
		rec, err := loadRecord(tx, key)
		if err != nil {
			return err
		}
		// The stored owner must agree with the derived address.
		if rec.Owner != caller {
			return ErrUnauthorized
		}
		if !ValidLessonID(lessonID) {
			return ErrInvalidLessonID
		}
		if rec.CompletedLessons[lessonID] {
			return ErrLessonAlreadyCompleted
		}
		rec.CompletedLessons[lessonID] = true
		if err := tx.KVPut(key, rec); err != nil {
			return err
		}
		e.emitOnCommit(tx, LessonCompletedEvent(caller, lessonID))
		return nil
	})
	return err
}

// MintParams carries the arguments of MintReward.
type MintParams struct {
	Caller   [20]byte
	Payer    [20]byte
	Record   [20]byte
	LessonID int
	URI      string
	Name     string
	Symbol   string
	// Mint is the caller-chosen identity of the new token. It must not have
	// been used before.
	Mint [20]byte
}

// MintResult identifies the issued token.
type MintResult struct {
	Mint     [20]byte
	Metadata [20]byte
}

// MintReward issues the reward token for a completed lesson and records the
// claim. Issuance and the claim flag commit in one transaction: if the issuer
// fails, neither the token nor the flag is stored.
func (e *Engine) MintReward(params MintParams) (result MintResult, err error) {
	start := time.Now()
	defer func() { e.observe("mint_reward", start, err) }()

	if e == nil || e.state == nil {
		return MintResult{}, errNilState
	}
	if e.issuer == nil {
		return MintResult{}, errNilIssuer
	}
	if err := e.authorize(params.Caller, params.Record); err != nil {
		return MintResult{}, err
	}
	metadata, err := DeriveMetadataAddress(e.metadataProgramID, params.Mint)
	if err != nil {
		return MintResult{}, err
	}
	payer := params.Payer
	if payer == ([20]byte{}) {
		payer = params.Caller
	}
	req := IssueRequest{
		Mint:      params.Mint,
		Recipient: params.Caller,
		Payer:     payer,
		Metadata:  metadata,
		URI:       params.URI,
		Name:      params.Name,
		Symbol:    params.Symbol,
	}
	key := recordKey(params.Record)
	lockKeys := append([][]byte{key}, e.issuer.LockKeys(req)...)
	lessonID := params.LessonID
	err = e.state.Update(lockKeys, func(tx *state.Txn) error {
		rec, err := loadRecord(tx, key)
		if err != nil {
			return err
		}
		// The stored owner must agree with the derived address.
		if rec.Owner != params.Caller {
			return ErrUnauthorized
		}
		if !ValidLessonID(lessonID) {
			return ErrInvalidLessonID
		}
		if !rec.CompletedLessons[lessonID] {
			return ErrLessonNotCompleted
		}
		if rec.NftsClaimed[lessonID] {
			return ErrNftAlreadyClaimed
		}
		if err := e.issuer.Issue(tx, req); err != nil {
			return fmt.Errorf("%w: %w", ErrIssuanceFailed, err)
		}
		rec.NftsClaimed[lessonID] = true
		if err := tx.KVPut(key, rec); err != nil {
			return err
		}
		e.emitOnCommit(tx, NftMintedEvent(params.Caller, lessonID, params.Mint, metadata, payer))
		return nil
	})
	if err != nil {
		return MintResult{}, err
	}
	return MintResult{Mint: params.Mint, Metadata: metadata}, nil
}

// Progress returns a snapshot of the record stored at addr.
func (e *Engine) Progress(addr [20]byte) (*ProgressRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return loadRecord(e.state, recordKey(addr))
}

// ProgressOf returns the record belonging to participant.
func (e *Engine) ProgressOf(participant [20]byte) (*ProgressRecord, [20]byte, error) {
	addr, _, err := e.RecordAddress(participant)
	if err != nil {
		return nil, [20]byte{}, err
	}
	rec, err := e.Progress(addr)
	return rec, addr, err
}
