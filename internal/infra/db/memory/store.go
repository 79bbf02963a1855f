// Package memory is an in-process implementation of the repository ports used
// for local development and unit tests. Transactions are serialised and work
// on a private copy of the state that replaces the committed state only when
// the transaction function succeeds.
package memory

import (
	"context"
	"sync"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

type state struct {
	tags              map[string]*model.Tag
	tagByToken        map[string]string
	users             map[string]*model.User
	userByEmail       map[string]string
	activations       []*model.Activation
	audit             []*model.AuditEntry
	profiles          map[string]*model.Profile
	profileByUsername map[string]string
}

func newState() *state {
	return &state{
		tags:              map[string]*model.Tag{},
		tagByToken:        map[string]string{},
		users:             map[string]*model.User{},
		userByEmail:       map[string]string{},
		profiles:          map[string]*model.Profile{},
		profileByUsername: map[string]string{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.tags {
		c.tags[k] = copyTag(v)
	}
	for k, v := range st.tagByToken {
		c.tagByToken[k] = v
	}
	for k, v := range st.users {
		c.users[k] = copyUser(v)
	}
	for k, v := range st.userByEmail {
		c.userByEmail[k] = v
	}
	c.activations = append(c.activations, st.activations...)
	c.audit = append(c.audit, st.audit...)
	for k, v := range st.profiles {
		c.profiles[k] = copyProfile(v)
	}
	for k, v := range st.profileByUsername {
		c.profileByUsername[k] = v
	}
	return c
}

// Store holds all entities. Activations and audit entries are immutable once
// appended, so snapshots share them.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state

	// failWrites makes every write return the error; used by tests to
	// exercise rollback.
	failWrites error
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// Tx is the handle passed to repositories inside WithTx. It owns the working
// copy; readers outside the transaction keep seeing the committed state.
type Tx struct {
	store   *Store
	working *state
	done    bool
}

// FailWrites makes subsequent writes fail with err (nil restores normal behaviour).
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// checkTx returns the open transaction, or nil for autocommit calls.
func (s *Store) checkTx(tx repository.Tx) (*Tx, error) {
	switch v := tx.(type) {
	case nil:
		return nil, nil
	case *Tx:
		if v == nil || v.store != s || v.done {
			return nil, domain.ErrInvalidExecContext
		}
		return v, nil
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

func (s *Store) read(tx repository.Tx, fn func(st *state) error) error {
	t, err := s.checkTx(tx)
	if err != nil {
		return err
	}
	if t != nil {
		return fn(t.working)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// write applies fn to the transaction's working copy. Outside a transaction
// the call is its own autocommit unit and waits for any open transaction.
func (s *Store) write(tx repository.Tx, fn func(st *state) error) error {
	t, err := s.checkTx(tx)
	if err != nil {
		return err
	}
	if t != nil {
		if err := s.writeFailure(); err != nil {
			return err
		}
		return fn(t.working)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites != nil {
		return s.failWrites
	}
	return fn(s.st)
}

func (s *Store) writeFailure() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failWrites
}

// TxManager implements repository.TransactionManager over a Store.
type TxManager struct {
	store *Store
}

func NewTxManager(s *Store) *TxManager {
	return &TxManager{store: s}
}

// WithTx runs fn with exclusive write access to the store. Isolation options
// are accepted for interface parity; every transaction here is serialisable
// and readers never observe uncommitted writes.
func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	s := m.store
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	tx := &Tx{store: s, working: s.st.clone()}
	s.mu.RUnlock()
	defer func() { tx.done = true }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.mu.Lock()
	s.st = tx.working
	s.mu.Unlock()
	return nil
}

func copyTag(t *model.Tag) *model.Tag {
	c := *t
	c.TargetURL = copyStr(t.TargetURL)
	c.BuyerUserID = copyStr(t.BuyerUserID)
	return &c
}

func copyUser(u *model.User) *model.User {
	c := *u
	c.Phone = copyStr(u.Phone)
	return &c
}

func copyProfile(p *model.Profile) *model.Profile {
	c := *p
	c.Links = append([]model.ProfileLink(nil), p.Links...)
	return &c
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
