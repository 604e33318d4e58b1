package model

//go:generate go run github.com/dmarkham/enumer -type Role -trimprefix Role -transform lower -json -yaml -sql -output role.gen.go

// Role is the access role of a user.
// The zero value is not a valid role and means "not specified".
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleStudent
)

// DefaultRole is used for new accounts when no role is requested.
const DefaultRole = RoleAdmin

// ParseRole parses s into a Role. An empty string yields DefaultRole.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return DefaultRole, nil
	}
	return RoleString(s)
}
