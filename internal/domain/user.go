package domain

import "github.com/gobuffalo/nulls"

// Role is the user's authorization role.
type Role string

const (
	RolePlayer Role = "player"
	RoleCoach  Role = "coach"
	RoleAdmin  Role = "admin"
)

// CanManageMatches reports whether the role may create matches and record
// scoring events.
func (r Role) CanManageMatches() bool {
	return r == RoleCoach || r == RoleAdmin
}

// User is the authenticated account shape returned by the auth endpoints.
type User struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Role      Role         `json:"role"`
	Position  nulls.String `json:"position"`
	TeamID    nulls.Int64  `json:"teamId"`
}
