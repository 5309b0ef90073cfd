package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vynaa/vbase/internal/model"
	"github.com/vynaa/vbase/internal/util"
)

// Store holds the in-memory user directory and database registry. It is
// the single shared state of the process, injected into handlers and
// rebuilt wholesale by the sync service. All returned users, databases
// and records are deep copies; mutations go through store methods only.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*model.User       // email -> user
	userByID  map[string]*model.User       // id -> user
	databases map[string][]*model.Database // owner email -> ordered databases
	dbByID    map[string]*model.Database   // id -> database (O(1) lookup)
	apiKeys   map[string]string            // api key -> user id

	// demo bypass credential, accepted for this one account
	// regardless of the stored password
	demoEmail    string
	demoPassword string
}

type Options struct {
	DemoEmail    string
	DemoPassword string
}

func New(opts Options) *Store {
	return &Store{
		users:        map[string]*model.User{},
		userByID:     map[string]*model.User{},
		databases:    map[string][]*model.Database{},
		dbByID:       map[string]*model.Database{},
		apiKeys:      map[string]string{},
		demoEmail:    opts.DemoEmail,
		demoPassword: opts.DemoPassword,
	}
}

// put indexes a user under every lookup key. Callers hold the write lock.
func (s *Store) put(u *model.User) {
	s.users[u.Email] = u
	s.userByID[u.ID] = u
	s.apiKeys[u.APIKey] = u.ID
}

// ---- user directory ----

// Register allocates a new free-plan user with a fresh id and API key.
// Duplicate registrations are rejected, not merged.
func (s *Store) Register(email, password, name string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[email]; ok {
		return nil, ErrUserExists
	}

	u := &model.User{
		ID:        util.NewUserID(),
		Email:     email,
		Password:  password,
		Name:      name,
		Plan:      model.PlanFree,
		Role:      model.RoleUser,
		APIKey:    util.NewAPIKey(),
		CreatedAt: time.Now().UTC(),
	}
	s.put(u)

	return u.Clone(), nil
}

// Unregister removes a user again; rollback path for a failed
// persist during registration.
func (s *Store) Unregister(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return
	}
	delete(s.users, email)
	delete(s.userByID, u.ID)
	delete(s.apiKeys, u.APIKey)
}

// Authenticate looks up by email and compares the trimmed credential.
// Unknown email and wrong password are distinct outcomes.
func (s *Store) Authenticate(email, password string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	if strings.TrimSpace(password) == strings.TrimSpace(u.Password) {
		return u.Clone(), nil
	}
	if email == s.demoEmail && password == s.demoPassword {
		return u.Clone(), nil
	}
	return nil, ErrInvalidPassword
}

func (s *Store) GetByEmail(email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *Store) GetByID(id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.userByID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

// Has reports whether the directory knows the email. Used by the
// session gateway to detect cold-start cache misses.
func (s *Store) Has(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[email]
	return ok
}

// ResolveAPIKey maps a request-supplied key to a user id.
func (s *Store) ResolveAPIKey(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.apiKeys[key]
	return id, ok
}

// UpdatePlan overwrites the user's plan tier.
func (s *Store) UpdatePlan(email string, plan model.Plan) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Plan = plan
	return u.Clone(), nil
}

// CheckQuota fails closed once the cumulative counter has reached the
// plan ceiling, without mutating state.
func (s *Store) CheckQuota(userID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.userByID[userID]
	if !ok {
		return ErrUserNotFound
	}
	if u.Requests >= u.Plan.RequestLimit() {
		return ErrQuotaExceeded
	}
	return nil
}

// IncrementUsage bumps the cumulative counter by one. It re-checks the
// ceiling under the write lock so the counter can never pass it.
func (s *Store) IncrementUsage(userID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.userByID[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if u.Requests >= u.Plan.RequestLimit() {
		return nil, ErrQuotaExceeded
	}
	u.Requests++
	return u.Clone(), nil
}

// Users returns all users ordered by creation time, for the admin view.
func (s *Store) Users() []*model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ---- database registry ----

// CreateDatabase allocates a database for the owner, enforcing the
// plan's database-count ceiling.
func (s *Store) CreateDatabase(email, name, typ, description string) (*model.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	if limit := u.Plan.DatabaseLimit(); limit > 0 && len(s.databases[email]) >= limit {
		return nil, ErrDatabaseLimit
	}

	db := &model.Database{
		ID:          util.NewDatabaseID(),
		Name:        name,
		Type:        typ,
		Description: description,
		OwnerEmail:  email,
		CreatedAt:   time.Now().UTC(),
	}
	if _, taken := s.dbByID[db.ID]; taken {
		return nil, ErrDatabaseIDTaken
	}
	s.databases[email] = append(s.databases[email], db)
	s.dbByID[db.ID] = db
	u.DatabaseIDs = append(u.DatabaseIDs, db.ID)

	return db.Clone(), nil
}

// RemoveDatabase detaches a database again; rollback path for a failed
// persist during creation.
func (s *Store) RemoveDatabase(dbID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.dbByID[dbID]
	if !ok {
		return
	}
	delete(s.dbByID, dbID)

	owned := s.databases[db.OwnerEmail]
	for i, d := range owned {
		if d.ID == dbID {
			s.databases[db.OwnerEmail] = append(owned[:i:i], owned[i+1:]...)
			break
		}
	}
	if u, ok := s.users[db.OwnerEmail]; ok {
		for i, id := range u.DatabaseIDs {
			if id == dbID {
				u.DatabaseIDs = append(u.DatabaseIDs[:i:i], u.DatabaseIDs[i+1:]...)
				break
			}
		}
	}
}

// DatabasesOf lists the owner's databases in creation order.
func (s *Store) DatabasesOf(email string) []*model.Database {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.databases[email]
	out := make([]*model.Database, len(owned))
	for i, db := range owned {
		out[i] = db.Clone()
	}
	return out
}

// InsertRecord appends a timestamped record to the database.
func (s *Store) InsertRecord(dbID string, fields map[string]any) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.dbByID[dbID]
	if !ok {
		return nil, ErrDatabaseNotFound
	}
	rec := &model.Record{
		ID:        util.NewRecordID(),
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
	db.Records = append(db.Records, rec)
	return rec.Clone(), nil
}

// SelectRecords returns the full record sequence in insertion order.
func (s *Store) SelectRecords(dbID string) ([]*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, ok := s.dbByID[dbID]
	if !ok {
		return nil, ErrDatabaseNotFound
	}
	out := make([]*model.Record, len(db.Records))
	for i, r := range db.Records {
		out[i] = r.Clone()
	}
	return out, nil
}

// UpdateRecord shallow-merges the payload onto the record. Unknown
// database and unknown record are distinct failures.
func (s *Store) UpdateRecord(dbID, recordID string, fields map[string]any) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.dbByID[dbID]
	if !ok {
		return nil, ErrDatabaseNotFound
	}
	for _, r := range db.Records {
		if r.ID == recordID {
			r.Merge(fields)
			return r.Clone(), nil
		}
	}
	return nil, ErrRecordNotFound
}

// DeleteRecord removes the matching record, detecting absence by the
// sequence length before and after.
func (s *Store) DeleteRecord(dbID, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.dbByID[dbID]
	if !ok {
		return ErrDatabaseNotFound
	}
	kept := db.Records[:0]
	for _, r := range db.Records {
		if r.ID != recordID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(db.Records) {
		return ErrRecordNotFound
	}
	db.Records = kept
	return nil
}

// ---- resync ----

// ReplaceAll swaps in freshly loaded state and rebuilds every derived
// index: user-by-id, api-key lookup and the owned-database-id sets.
// Records already held in memory for a database id survive the swap so
// a resync does not wipe data-plane writes (row store rows carry no
// records).
func (s *Store) ReplaceAll(users map[string]*model.User, databases map[string][]*model.Database) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevRecords := map[string][]*model.Record{}
	for id, db := range s.dbByID {
		if len(db.Records) > 0 {
			prevRecords[id] = db.Records
		}
	}

	s.users = users
	s.databases = databases
	s.userByID = map[string]*model.User{}
	s.dbByID = map[string]*model.Database{}
	s.apiKeys = map[string]string{}

	for _, u := range s.users {
		s.userByID[u.ID] = u
		s.apiKeys[u.APIKey] = u.ID
		u.DatabaseIDs = nil
	}
	for email, owned := range s.databases {
		for _, db := range owned {
			if recs, ok := prevRecords[db.ID]; ok && len(db.Records) == 0 {
				db.Records = recs
			}
			s.dbByID[db.ID] = db
			if u, ok := s.users[email]; ok {
				u.DatabaseIDs = append(u.DatabaseIDs, db.ID)
			}
		}
	}
}
