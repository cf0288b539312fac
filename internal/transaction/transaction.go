// Package transaction implements the transaction manager (C9): an Active
// transaction buffers operations without applying them; commit replays the
// buffer against a working copy of the document, atomically swapping it in
// on success or discarding it wholesale on any failure.
package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/operation"
	"github.com/antonio7098/unified-content-protocol/internal/telemetry"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// State is one of the transaction lifecycle's terminal or active states
// (§4.12: Active -> Committed | RolledBack | TimedOut).
type State string

const (
	StateActive     State = "active"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
	StateTimedOut   State = "timed_out"
)

// Savepoint is a named marker recording how far the operation buffer had
// grown, plus a lightweight state hash of the document at that point
// (§4.6).
type Savepoint struct {
	Name        string
	BufferIndex int
	StateHash   uint64
}

// ID identifies a transaction within a manager.
type ID string

// Transaction buffers operations against one document until commit or
// rollback.
type Transaction struct {
	id         ID
	docID      document.DocumentID
	state      State
	ops        []operation.Operation
	savepoints []Savepoint
	createdAt  time.Time
	timeout    time.Duration
}

// ID returns the transaction's identifier.
func (t *Transaction) ID() ID { return t.id }

// State returns the current lifecycle state.
func (t *Transaction) State() State { return t.state }

// Manager owns every transaction opened against documents it tracks
// (§4.6). One Manager is expected per document, mirroring the
// single-threaded-per-document cooperative scheduling model (§5).
type Manager struct {
	transactions map[ID]*Transaction
	timeout      time.Duration
	logger       telemetry.Logger
}

// DefaultTimeout is the spec's default transaction commit budget (§4.6).
const DefaultTimeout = 30 * time.Second

// Option configures optional Manager dependencies.
type Option func(*Manager)

// WithLogger sets the logger used for commit/rollback boundary logging.
// When not given, the Manager uses telemetry.NewNopLogger(): the transaction
// engine must not take a logging dependency by default, only at a boundary
// the caller opts into (§5).
func WithLogger(l telemetry.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager builds a Manager with the given default timeout (DefaultTimeout
// if zero).
func NewManager(timeout time.Duration, opts ...Option) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Manager{transactions: map[ID]*Transaction{}, timeout: timeout, logger: telemetry.NewNopLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin opens a new Active transaction against docID.
func (m *Manager) Begin(docID document.DocumentID) *Transaction {
	tx := &Transaction{
		id:        ID(uuid.NewString()),
		docID:     docID,
		state:     StateActive,
		createdAt: time.Now().UTC(),
		timeout:   m.timeout,
	}
	m.transactions[tx.id] = tx
	return tx
}

// Get returns a tracked transaction by id.
func (m *Manager) Get(id ID) (*Transaction, error) {
	tx, ok := m.transactions[id]
	if !ok {
		return nil, ucperr.New(ucperr.E301TxNotFound, "transaction not found")
	}
	return tx, nil
}

// AddOperation buffers op on tx without applying it. Fails if tx is not
// Active.
func (m *Manager) AddOperation(id ID, op operation.Operation) error {
	tx, err := m.Get(id)
	if err != nil {
		return err
	}
	if tx.state != StateActive {
		return ucperr.New(ucperr.E302TxInvalidState, "transaction is not active")
	}
	tx.ops = append(tx.ops, op)
	return nil
}

// Savepoint records a named marker at the transaction's current buffer
// position, together with doc's current Version.StateHash (the document
// itself does not change until commit, so this is the hash of the state the
// buffer will be replayed against, not of the buffered operations).
func (m *Manager) Savepoint(id ID, name string, doc *document.Document) error {
	tx, err := m.Get(id)
	if err != nil {
		return err
	}
	if tx.state != StateActive {
		return ucperr.New(ucperr.E302TxInvalidState, "transaction is not active")
	}
	tx.savepoints = append(tx.savepoints, Savepoint{
		Name:        name,
		BufferIndex: len(tx.ops),
		StateHash:   doc.Version.StateHash,
	})
	return nil
}

// RollbackTo truncates the operation buffer back to the named savepoint,
// discarding everything buffered after it. Savepoints are scoped to the
// owning transaction; a name not found on this transaction is an error.
func (m *Manager) RollbackTo(id ID, name string) error {
	tx, err := m.Get(id)
	if err != nil {
		return err
	}
	if tx.state != StateActive {
		return ucperr.New(ucperr.E302TxInvalidState, "transaction is not active")
	}
	for i := len(tx.savepoints) - 1; i >= 0; i-- {
		if tx.savepoints[i].Name == name {
			sp := tx.savepoints[i]
			tx.ops = tx.ops[:sp.BufferIndex]
			tx.savepoints = tx.savepoints[:i]
			return nil
		}
	}
	return ucperr.New(ucperr.E301TxNotFound, "savepoint not found on this transaction")
}

// Commit replays tx's buffered operations, in order, against a working copy
// of doc. If every operation succeeds, the working copy becomes the new
// document state (by value, via the returned *document.Document the caller
// should adopt); the caller's original doc is left untouched either way, so
// the caller is responsible for swapping in the result on success. If any
// operation fails, tx transitions to RolledBack and Commit returns a nil
// document and an E304 error; the original doc is unchanged. Crossing the
// timeout turns commit into TimedOut with no partial effects.
func (m *Manager) Commit(id ID, doc *document.Document) (*document.Document, error) {
	ctx := context.Background()
	tx, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if tx.state != StateActive {
		return nil, ucperr.New(ucperr.E302TxInvalidState, "transaction is not active")
	}
	if time.Since(tx.createdAt) > tx.timeout {
		tx.state = StateTimedOut
		m.logger.Error(ctx, "transaction commit timed out", "tx_id", string(id))
		return nil, ucperr.New(ucperr.E303TxTimeout, "transaction commit exceeded its timeout")
	}

	working := doc.Clone()
	for _, op := range tx.ops {
		result := operation.Execute(working, op)
		if !result.Success {
			tx.state = StateRolledBack
			m.logger.Warn(ctx, "transaction aborted", "tx_id", string(id), "error", result.Error.Error())
			return nil, ucperr.New(ucperr.E304TxAborted, "transaction aborted: "+result.Error.Error())
		}
	}
	tx.state = StateCommitted
	m.logger.Debug(ctx, "transaction committed", "tx_id", string(id), "op_count", len(tx.ops))
	return working, nil
}

// Rollback marks tx as RolledBack without applying any buffered operation.
func (m *Manager) Rollback(id ID) error {
	tx, err := m.Get(id)
	if err != nil {
		return err
	}
	if tx.state != StateActive {
		return ucperr.New(ucperr.E302TxInvalidState, "transaction is not active")
	}
	tx.state = StateRolledBack
	m.logger.Debug(context.Background(), "transaction rolled back", "tx_id", string(id))
	return nil
}

// Cleanup removes every tracked transaction not in the Active state.
func (m *Manager) Cleanup() {
	for id, tx := range m.transactions {
		if tx.state != StateActive {
			delete(m.transactions, id)
		}
	}
}
