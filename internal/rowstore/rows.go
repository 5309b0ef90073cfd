package rowstore

import (
	"strconv"
	"time"

	"github.com/vynaa/vbase/internal/model"
)

const (
	usersSheet     = "Users"
	databasesSheet = "Databases"
)

var (
	userHeader     = []string{"id", "email", "password", "name", "plan", "apiKey", "requests", "createdAt", "role"}
	databaseHeader = []string{"id", "name", "type", "description", "ownerEmail", "createdAt"}
)

// cell coerces a raw spreadsheet value at index i to a string.
func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func userToRow(u *model.User) []any {
	return []any{
		u.ID,
		u.Email,
		u.Password,
		u.Name,
		u.Plan.String(),
		u.APIKey,
		strconv.Itoa(u.Requests),
		u.CreatedAt.UTC().Format(time.RFC3339),
		u.Role.String(),
	}
}

func userFromRow(row []any) *model.User {
	requests, _ := strconv.Atoi(cell(row, 6))
	plan, _ := model.ParsePlan(cell(row, 4))
	role := model.Role(cell(row, 8))
	if role != model.RoleAdmin {
		role = model.RoleUser
	}
	return &model.User{
		ID:        cell(row, 0),
		Email:     cell(row, 1),
		Password:  cell(row, 2),
		Name:      cell(row, 3),
		Plan:      plan,
		APIKey:    cell(row, 5),
		Requests:  requests,
		CreatedAt: parseTime(cell(row, 7)),
		Role:      role,
	}
}

func databaseToRow(db *model.Database) []any {
	return []any{
		db.ID,
		db.Name,
		db.Type,
		db.Description,
		db.OwnerEmail,
		db.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func databaseFromRow(row []any) *model.Database {
	return &model.Database{
		ID:          cell(row, 0),
		Name:        cell(row, 1),
		Type:        cell(row, 2),
		Description: cell(row, 3),
		OwnerEmail:  cell(row, 4),
		CreatedAt:   parseTime(cell(row, 5)),
	}
}
