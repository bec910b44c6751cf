package rbac

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// memoryStore is an in-memory implementation of every store interface the
// package consumes. Grants are keyed by storage role and permission id.
type memoryStore struct {
	mu          sync.Mutex
	principal   *Principal
	profiles    map[uuid.UUID]Profile
	assignments map[uuid.UUID][]string
	permissions []Permission
	grants      map[string]map[uuid.UUID]bool
	activity    []ActivityLog

	grantQueries atomic.Int32
	failWith     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		profiles:    make(map[uuid.UUID]Profile),
		assignments: make(map[uuid.UUID][]string),
		grants:      make(map[string]map[uuid.UUID]bool),
	}
}

// addUser registers a signed-in principal with a profile and raw role values.
func (m *memoryStore) addUser(roles ...string) uuid.UUID {
	id := uuid.New()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.principal = &Principal{ID: id, Email: id.String() + "@test.local"}
	m.profiles[id] = Profile{ID: id}
	m.assignments[id] = roles
	return id
}

func (m *memoryStore) addPermission(code string) uuid.UUID {
	id := uuid.New()
	m.mu.Lock()
	m.permissions = append(m.permissions, Permission{ID: id, Code: code, Name: code})
	m.mu.Unlock()
	return id
}

func (m *memoryStore) grant(storageRole string, code string, granted bool) {
	var id uuid.UUID
	for _, p := range m.permissions {
		if p.Code == code {
			id = p.ID
		}
	}
	if id == uuid.Nil {
		id = m.addPermission(code)
	}
	_ = m.UpsertGrant(context.Background(), storageRole, id, granted)
}

func (m *memoryStore) CurrentPrincipal(context.Context) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.principal == nil {
		return nil, nil
	}
	p := *m.principal
	return &p, nil
}

func (m *memoryStore) GetProfile(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memoryStore) ListRoleAssignments(_ context.Context, id uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.assignments[id]...), nil
}

func (m *memoryStore) ListGrantedPermissionCodes(_ context.Context, storageRoles []string) ([]string, error) {
	m.grantQueries.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make(map[uuid.UUID]struct{})
	for _, role := range storageRoles {
		for id, granted := range m.grants[role] {
			if granted {
				codes[id] = struct{}{}
			}
		}
	}
	var out []string
	for _, p := range m.permissions {
		if _, ok := codes[p.ID]; ok {
			out = append(out, p.Code)
		}
	}
	return out, nil
}

func (m *memoryStore) ListRoles(context.Context) ([]RoleRecord, error) {
	var out []RoleRecord
	for _, r := range RoleSlugs() {
		out = append(out, RoleRecord{ID: uuid.New(), Slug: StorageRole(string(r)), Name: string(r), IsSystem: true})
	}
	return out, nil
}

func (m *memoryStore) ListPermissions(context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Permission(nil), m.permissions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memoryStore) ListRoleGrants(_ context.Context, storageRole string) ([]Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Grant
	for id, granted := range m.grants[storageRole] {
		out = append(out, Grant{Role: storageRole, PermissionID: id, Granted: granted})
	}
	return out, nil
}

func (m *memoryStore) UpsertGrant(_ context.Context, storageRole string, permissionID uuid.UUID, granted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	known := false
	for _, p := range m.permissions {
		if p.ID == permissionID {
			known = true
		}
	}
	if !known {
		return ErrNotFound
	}
	if m.grants[storageRole] == nil {
		m.grants[storageRole] = make(map[uuid.UUID]bool)
	}
	m.grants[storageRole][permissionID] = granted
	return nil
}

func (m *memoryStore) AssignRole(_ context.Context, userID uuid.UUID, storageRole string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.assignments[userID] {
		if r == storageRole {
			return nil
		}
	}
	m.assignments[userID] = append(m.assignments[userID], storageRole)
	return nil
}

func (m *memoryStore) RevokeRole(_ context.Context, userID uuid.UUID, storageRole string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := m.assignments[userID]
	for i, r := range roles {
		if r == storageRole {
			m.assignments[userID] = append(roles[:i:i], roles[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryStore) RecordActivity(_ context.Context, entry ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, entry)
	return nil
}

func (m *memoryStore) builder() *Builder {
	return NewBuilder(NewIdentityLoader(m, m), NewPermissionResolver(m))
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveDecision(kind, outcome, reason string) {
	o.mu.Lock()
	o.calls = append(o.calls, kind+":"+outcome+":"+reason)
	o.mu.Unlock()
}
