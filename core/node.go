package core

import (
	"fmt"
	"log/slog"

	"lessonchain/core/events"
	"lessonchain/core/state"
	"lessonchain/crypto"
	"lessonchain/native/progress"
	"lessonchain/native/token"
	"lessonchain/storage"
)

// Options configures the programs a Node runs.
type Options struct {
	ProgramID         [20]byte
	MetadataProgramID [20]byte
	// MintAuthority defaults to the address derived from ProgramID.
	MintAuthority [20]byte
	Observer      progress.Observer
	Logger        *slog.Logger
}

// Node is the central controller, wiring all components together.
type Node struct {
	db            storage.Database
	state         *state.Manager
	tokens        *token.Registry
	progress      *progress.Engine
	emitter       *events.MultiEmitter
	mintAuthority [20]byte
	logger        *slog.Logger
}

func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	if opts.ProgramID == ([20]byte{}) || opts.MetadataProgramID == ([20]byte{}) {
		return nil, fmt.Errorf("node: program ids required")
	}
	authority := opts.MintAuthority
	if authority == ([20]byte{}) {
		derived, err := progress.DeriveMintAuthority(opts.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("node: derive mint authority: %w", err)
		}
		authority = derived
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	manager := state.NewManager(db)
	emitter := events.NewMultiEmitter()

	registry := token.NewRegistry(opts.MetadataProgramID, authority)
	registry.SetState(manager)

	engine := progress.NewEngine(opts.ProgramID, opts.MetadataProgramID)
	engine.SetState(manager)
	engine.SetIssuer(registry)
	engine.SetEmitter(emitter)
	if opts.Observer != nil {
		engine.SetObserver(opts.Observer)
	}

	logger.Info("lesson node ready",
		slog.String("program", crypto.FromRaw(crypto.ProgramPrefix, opts.ProgramID).String()),
		slog.String("metadata_program", crypto.FromRaw(crypto.ProgramPrefix, opts.MetadataProgramID).String()),
		slog.String("mint_authority", crypto.FromRaw(crypto.ProgramPrefix, authority).String()))

	return &Node{
		db:            db,
		state:         manager,
		tokens:        registry,
		progress:      engine,
		emitter:       emitter,
		mintAuthority: authority,
		logger:        logger,
	}, nil
}

// Progress returns the progress transition engine.
func (n *Node) Progress() *progress.Engine { return n.progress }

// Tokens returns the reward token registry.
func (n *Node) Tokens() *token.Registry { return n.tokens }

// State returns the state manager backing the node.
func (n *Node) State() *state.Manager { return n.state }

// MintAuthority returns the authority recorded on every issued token.
func (n *Node) MintAuthority() [20]byte { return n.mintAuthority }

// Subscribe registers sub to receive every committed event.
func (n *Node) Subscribe(sub events.Emitter) { n.emitter.Subscribe(sub) }

// Close releases the underlying database.
func (n *Node) Close() {
	if n == nil || n.db == nil {
		return
	}
	n.db.Close()
	n.logger.Info("lesson node closed")
}
