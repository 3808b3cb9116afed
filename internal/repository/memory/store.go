// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same unique, foreign-key and check constraints
// as the Postgres schema, so services behave identically on either backend.
// It backs the service and API tests and the "memory" store driver.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/models"
	"github.com/lalith-99/realmhub/internal/repository"
)

var _ repository.Transactor = (*Store)(nil)

type state struct {
	accounts    map[uuid.UUID]models.Account
	realms      map[uuid.UUID]models.Realm
	roles       map[uuid.UUID]models.Role
	permissions map[uuid.UUID]models.Permission
	grants      []models.Grant
	bridges     map[uuid.UUID]models.ChannelBridge
	bots        map[uuid.UUID]models.Bot

	// last is the most recent timestamp handed out; clock readings are
	// forced to be strictly increasing so ordering by time is stable.
	last time.Time
}

func newState() *state {
	return &state{
		accounts:    make(map[uuid.UUID]models.Account),
		realms:      make(map[uuid.UUID]models.Realm),
		roles:       make(map[uuid.UUID]models.Role),
		permissions: make(map[uuid.UUID]models.Permission),
		bridges:     make(map[uuid.UUID]models.ChannelBridge),
		bots:        make(map[uuid.UUID]models.Bot),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.realms {
		c.realms[k] = v
	}
	for k, v := range st.roles {
		c.roles[k] = v
	}
	for k, v := range st.permissions {
		c.permissions[k] = v
	}
	c.grants = append([]models.Grant(nil), st.grants...)
	for k, v := range st.bridges {
		c.bridges[k] = v
	}
	for k, v := range st.bots {
		c.bots[k] = v
	}
	c.last = st.last
	return c
}

// Store holds the data set. The zero value is not usable; call New.
type Store struct {
	mu     sync.Mutex
	st     *state
	clock  func() time.Time
	faults map[string]error
}

func New() *Store {
	return &Store{
		st:     newState(),
		clock:  time.Now,
		faults: make(map[string]error),
	}
}

// FailNext makes the next call of op return err. op names the repository
// method as "<table>.<method>", e.g. "roles.create" or "bots.update".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// RoleByName returns a copy of the role called name in realmID, or nil.
// The services never read roles back; this is for inspecting the data set.
func (s *Store) RoleByName(realmID uuid.UUID, name string) *models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, role := range s.st.roles {
		if role.RealmID == realmID && role.Name == name {
			return &role
		}
	}
	return nil
}

// PermissionsOf returns copies of the permissions held by roleID.
func (s *Store) PermissionsOf(roleID uuid.UUID) []models.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	var perms []models.Permission
	for _, p := range s.st.permissions {
		if p.RoleID == roleID {
			p.Actions = cloneStrings(p.Actions)
			perms = append(perms, p)
		}
	}
	return perms
}

// Health always succeeds; the data set lives in process.
func (s *Store) Health(context.Context) error {
	return nil
}

// Repositories returns stores that lock the data set per call.
func (s *Store) Repositories() repository.Repositories {
	return reposFor(&view{store: s, lock: &s.mu, st: func() *state { return s.st }})
}

// WithinTx runs fn against a private copy of the data set and publishes the
// copy only if fn returns nil. Transactions are serialized with every other
// call, so fn must not use repositories obtained outside of it.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	v := &view{store: s, lock: noopLocker{}, st: func() *state { return work }}
	if err := fn(ctx, reposFor(v)); err != nil {
		return err
	}
	s.st = work
	return nil
}

// view binds repositories to either the live state or a transaction copy.
type view struct {
	store *Store
	lock  sync.Locker
	st    func() *state
}

// run executes f under the view's lock after consuming any injected fault.
func (v *view) run(op string, f func(st *state) error) error {
	v.lock.Lock()
	defer v.lock.Unlock()
	if err, ok := v.store.faults[op]; ok {
		delete(v.store.faults, op)
		return fmt.Errorf("%s: %w", op, err)
	}
	return f(v.st())
}

func (v *view) now(st *state) time.Time {
	t := v.store.clock().UTC()
	if !t.After(st.last) {
		t = st.last.Add(time.Microsecond)
	}
	st.last = t
	return t
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

func reposFor(v *view) repository.Repositories {
	return repository.Repositories{
		Accounts:    &accountRepo{v},
		Realms:      &realmRepo{v},
		Roles:       &roleRepo{v},
		Permissions: &permissionRepo{v},
		Grants:      &grantRepo{v},
		Bridges:     &bridgeRepo{v},
		Bots:        &botRepo{v},
	}
}

func unique(op, constraint string) error {
	return fmt.Errorf("%s: %w (%s)", op, repository.ErrUniqueViolation, constraint)
}

func foreignKey(op, constraint string) error {
	return fmt.Errorf("%s: %w (%s)", op, repository.ErrForeignKeyViolation, constraint)
}

func check(op, constraint string) error {
	return fmt.Errorf("%s: %w (%s)", op, repository.ErrCheckViolation, constraint)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
