package rowstore

import (
	"context"
	"sync"

	"github.com/vynaa/vbase/internal/model"
)

// MemoryStore keeps rows in process memory. It backs dev mode (no
// spreadsheet configured) and tests; the upsert semantics match
// SheetsStore.
type MemoryStore struct {
	mu        sync.Mutex
	userRows  [][]any
	dbRows    [][]any
	loadErr   error
	saveErr   error
	saveCount int
}

var _ Store = (*MemoryStore)(nil)

func NewMemory() *MemoryStore { return &MemoryStore{} }

// FailLoads makes subsequent load calls return err (nil to reset).
func (m *MemoryStore) FailLoads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// FailSaves makes subsequent save calls return err (nil to reset).
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// SaveCount reports how many save calls succeeded.
func (m *MemoryStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCount
}

func (m *MemoryStore) EnsureSheets(ctx context.Context) error { return nil }

func (m *MemoryStore) LoadUsers(ctx context.Context) (map[string]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}
	users := map[string]*model.User{}
	for _, row := range m.userRows {
		u := userFromRow(row)
		if u.Email == "" {
			continue
		}
		users[u.Email] = u
	}
	return users, nil
}

func (m *MemoryStore) SaveUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	row := userToRow(u)
	for i, r := range m.userRows {
		if cell(r, 1) == u.Email {
			m.userRows[i] = row
			m.saveCount++
			return nil
		}
	}
	m.userRows = append(m.userRows, row)
	m.saveCount++
	return nil
}

func (m *MemoryStore) LoadDatabases(ctx context.Context) (map[string][]*model.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}
	byEmail := map[string][]*model.Database{}
	for _, row := range m.dbRows {
		db := databaseFromRow(row)
		if db.ID == "" || db.OwnerEmail == "" {
			continue
		}
		byEmail[db.OwnerEmail] = append(byEmail[db.OwnerEmail], db)
	}
	return byEmail, nil
}

func (m *MemoryStore) SaveDatabase(ctx context.Context, db *model.Database) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	row := databaseToRow(db)
	for i, r := range m.dbRows {
		if cell(r, 0) == db.ID {
			m.dbRows[i] = row
			m.saveCount++
			return nil
		}
	}
	m.dbRows = append(m.dbRows, row)
	m.saveCount++
	return nil
}
