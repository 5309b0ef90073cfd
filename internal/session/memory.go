package session

import (
	"context"
	"sync"
	"time"

	"github.com/vynaa/vbase/internal/util"
)

// MemoryManager is the in-process Manager used by tests and dev mode.
type MemoryManager struct {
	mu       sync.Mutex
	sessions map[string]entry
	ttl      time.Duration
}

type entry struct {
	sess    Session
	expires time.Time
}

var _ Manager = (*MemoryManager)(nil)

func NewMemory(ttl time.Duration) *MemoryManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryManager{sessions: map[string]entry{}, ttl: ttl}
}

func (m *MemoryManager) Create(ctx context.Context, sess Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := util.NewSessionToken()
	m.sessions[token] = entry{sess: sess, expires: time.Now().Add(m.ttl)}
	return token, nil
}

func (m *MemoryManager) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expires) {
		delete(m.sessions, token)
		return nil, nil
	}
	sess := e.sess
	return &sess, nil
}

func (m *MemoryManager) Destroy(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
	return nil
}
