package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) String() string { return string(r) }

// User is a registered account. Email is the primary lookup key and
// must be unique; APIKey resolves to exactly one user id.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	Plan      Plan      `json:"plan"`
	Role      Role      `json:"role"`
	APIKey    string    `json:"apiKey"`
	Requests  int       `json:"requests"`
	CreatedAt time.Time `json:"createdAt"`

	// DatabaseIDs is the set of databases owned by this user,
	// rebuilt from the Databases sheet on every sync.
	DatabaseIDs []string `json:"databases"`
}

// Clone returns a deep copy safe to hand out across the store boundary.
func (u *User) Clone() *User {
	cp := *u
	cp.DatabaseIDs = append([]string(nil), u.DatabaseIDs...)
	return &cp
}
