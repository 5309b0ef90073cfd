package util

import (
	"strings"

	"github.com/google/uuid"
)

// short returns the first 8 hex chars of a fresh uuid.
func short() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewUserID generates a user id like "user_1a2b3c4d".
func NewUserID() string { return "user_" + short() }

// NewDatabaseID generates a database id like "db_1a2b3c4d".
func NewDatabaseID() string { return "db_" + short() }

// NewRecordID generates a record id like "rec_1a2b3c4d".
func NewRecordID() string { return "rec_" + short() }

// NewAPIKey generates an API key like "vbase_<uuid>".
func NewAPIKey() string { return "vbase_" + uuid.NewString() }
