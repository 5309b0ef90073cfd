package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vynaa/vbase/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Options{DemoEmail: "demo@vbase.com", DemoPassword: "demo123"})
}

func registerAlice(t *testing.T, s *Store) *model.User {
	t.Helper()
	u, err := s.Register("alice@example.com", "secret", "Alice")
	require.NoError(t, err)
	return u
}

// --- Register ---

func TestRegister_AllocatesIdentity(t *testing.T) {
	s := newTestStore(t)
	u := registerAlice(t, s)

	assert.Contains(t, u.ID, "user_")
	assert.Contains(t, u.APIKey, "vbase_")
	assert.Equal(t, model.PlanFree, u.Plan)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Zero(t, u.Requests)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)

	_, err := s.Register("alice@example.com", "other", "Imposter")
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Len(t, s.Users(), 1)
}

func TestUnregister_RollsBackLookupKeys(t *testing.T) {
	s := newTestStore(t)
	u := registerAlice(t, s)

	s.Unregister(u.Email)

	assert.False(t, s.Has(u.Email))
	_, ok := s.ResolveAPIKey(u.APIKey)
	assert.False(t, ok)
	_, err := s.GetByID(u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// --- Authenticate ---

func TestAuthenticate_DistinctFailures(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)

	_, err := s.Authenticate("nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = s.Authenticate("alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestAuthenticate_TrimsCredential(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)

	u, err := s.Authenticate("alice@example.com", "  secret  ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestAuthenticate_DemoBypass(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Register("demo@vbase.com", "rotated-password", "Demo User")
	require.NoError(t, err)

	// the literal bypass credential wins regardless of the stored one
	u, err := s.Authenticate("demo@vbase.com", "demo123")
	require.NoError(t, err)
	assert.Equal(t, "demo@vbase.com", u.Email)

	// but only for the demo account
	_, err = s.Authenticate("alice@example.com", "demo123")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// --- Databases ---

func TestCreateDatabase_FreePlanCeiling(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)

	for i := 0; i < 5; i++ {
		_, err := s.CreateDatabase("alice@example.com", fmt.Sprintf("db-%d", i), "json", "")
		require.NoError(t, err)
	}

	_, err := s.CreateDatabase("alice@example.com", "one-too-many", "json", "")
	assert.ErrorIs(t, err, ErrDatabaseLimit)
	assert.Len(t, s.DatabasesOf("alice@example.com"), 5)
}

func TestCreateDatabase_EnterpriseUnbounded(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	_, err := s.UpdatePlan("alice@example.com", model.PlanEnterprise)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		_, err := s.CreateDatabase("alice@example.com", fmt.Sprintf("db-%d", i), "json", "")
		require.NoError(t, err)
	}
	assert.Len(t, s.DatabasesOf("alice@example.com"), 8)
}

func TestCreateDatabase_TracksOwnedIDs(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)

	db, err := s.CreateDatabase("alice@example.com", "notes", "json", "my notes")
	require.NoError(t, err)
	assert.Contains(t, db.ID, "db_")
	assert.Equal(t, "alice@example.com", db.OwnerEmail)

	u, err := s.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{db.ID}, u.DatabaseIDs)
}

func TestRemoveDatabase_RollsBack(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	db, err := s.CreateDatabase("alice@example.com", "notes", "json", "")
	require.NoError(t, err)

	s.RemoveDatabase(db.ID)

	assert.Empty(t, s.DatabasesOf("alice@example.com"))
	u, _ := s.GetByEmail("alice@example.com")
	assert.Empty(t, u.DatabaseIDs)
	_, err = s.SelectRecords(db.ID)
	assert.ErrorIs(t, err, ErrDatabaseNotFound)
}

// --- Records ---

func TestInsertSelect_InsertionOrder(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	db, err := s.CreateDatabase("alice@example.com", "notes", "json", "")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		rec, err := s.InsertRecord(db.ID, map[string]any{"n": i})
		require.NoError(t, err)
		assert.Contains(t, rec.ID, "rec_")
		assert.False(t, rec.Timestamp.IsZero())
	}

	recs, err := s.SelectRecords(db.ID)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for i, rec := range recs {
		assert.Equal(t, i, rec.Fields["n"])
	}
}

func TestInsertRecord_UnknownDatabase(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertRecord("db_missing", map[string]any{"x": 1})
	assert.ErrorIs(t, err, ErrDatabaseNotFound)
}

func TestUpdateRecord_MergeSemantics(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	db, err := s.CreateDatabase("alice@example.com", "notes", "json", "")
	require.NoError(t, err)
	rec, err := s.InsertRecord(db.ID, map[string]any{"x": 1})
	require.NoError(t, err)

	_, err = s.UpdateRecord(db.ID, rec.ID, map[string]any{"y": 2})
	require.NoError(t, err)
	got, err := s.UpdateRecord(db.ID, rec.ID, map[string]any{"x": 3})
	require.NoError(t, err)

	// merge, not replace; last write wins per field
	assert.Equal(t, 3, got.Fields["x"])
	assert.Equal(t, 2, got.Fields["y"])
	assert.Equal(t, rec.ID, got.ID)
}

func TestUpdateRecord_DistinctMisses(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	db, err := s.CreateDatabase("alice@example.com", "notes", "json", "")
	require.NoError(t, err)

	_, err = s.UpdateRecord("db_missing", "rec_x", map[string]any{})
	assert.ErrorIs(t, err, ErrDatabaseNotFound)

	_, err = s.UpdateRecord(db.ID, "rec_missing", map[string]any{})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDeleteRecord_RemovesExactlyOne(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	db, err := s.CreateDatabase("alice@example.com", "notes", "json", "")
	require.NoError(t, err)
	a, _ := s.InsertRecord(db.ID, map[string]any{"v": "a"})
	b, _ := s.InsertRecord(db.ID, map[string]any{"v": "b"})

	require.NoError(t, s.DeleteRecord(db.ID, a.ID))

	recs, err := s.SelectRecords(db.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, b.ID, recs[0].ID)
}

func TestDeleteRecord_MissLeavesSequence(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	db, err := s.CreateDatabase("alice@example.com", "notes", "json", "")
	require.NoError(t, err)
	_, err = s.InsertRecord(db.ID, map[string]any{"v": "a"})
	require.NoError(t, err)

	err = s.DeleteRecord(db.ID, "rec_missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	recs, _ := s.SelectRecords(db.ID)
	assert.Len(t, recs, 1)
}

// --- Quota ---

func TestIncrementUsage_StopsAtCeiling(t *testing.T) {
	s := newTestStore(t)
	u := registerAlice(t, s)
	limit := model.PlanFree.RequestLimit()

	for i := 0; i < limit; i++ {
		require.NoError(t, s.CheckQuota(u.ID))
		_, err := s.IncrementUsage(u.ID)
		require.NoError(t, err)
	}

	assert.ErrorIs(t, s.CheckQuota(u.ID), ErrQuotaExceeded)
	_, err := s.IncrementUsage(u.ID)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	got, err := s.GetByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, got.Requests)
}

func TestCheckQuota_UnknownUser(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.CheckQuota("user_missing"), ErrUserNotFound)
}

// --- Resync ---

func TestReplaceAll_RebuildsIndexes(t *testing.T) {
	s := newTestStore(t)

	users := map[string]*model.User{
		"bob@example.com": {ID: "user_bob", Email: "bob@example.com", APIKey: "vbase_bob", Plan: model.PlanFree},
	}
	databases := map[string][]*model.Database{
		"bob@example.com": {{ID: "db_bob1", Name: "inventory", OwnerEmail: "bob@example.com"}},
	}
	s.ReplaceAll(users, databases)

	id, ok := s.ResolveAPIKey("vbase_bob")
	require.True(t, ok)
	assert.Equal(t, "user_bob", id)

	u, err := s.GetByEmail("bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"db_bob1"}, u.DatabaseIDs)

	_, err = s.SelectRecords("db_bob1")
	assert.NoError(t, err)
}

func TestReplaceAll_KeepsRecordsAcrossResync(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	db, err := s.CreateDatabase("alice@example.com", "notes", "json", "")
	require.NoError(t, err)
	_, err = s.InsertRecord(db.ID, map[string]any{"text": "hi"})
	require.NoError(t, err)

	// a reload from the row store carries no record payloads
	users := map[string]*model.User{
		"alice@example.com": {ID: "user_alice", Email: "alice@example.com", APIKey: "vbase_alice", Plan: model.PlanFree},
	}
	databases := map[string][]*model.Database{
		"alice@example.com": {{ID: db.ID, Name: "notes", OwnerEmail: "alice@example.com"}},
	}
	s.ReplaceAll(users, databases)

	recs, err := s.SelectRecords(db.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "hi", recs[0].Fields["text"])
}

func TestUsers_OrderedByCreation(t *testing.T) {
	s := newTestStore(t)
	registerAlice(t, s)
	_, err := s.Register("bob@example.com", "pw", "Bob")
	require.NoError(t, err)

	users := s.Users()
	require.Len(t, users, 2)
	assert.False(t, users[1].CreatedAt.Before(users[0].CreatedAt))
}
