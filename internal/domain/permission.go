package domain

import (
	"encoding/json"
	"fmt"
)

// PermissionLevel is an access level granted on a layer.
type PermissionLevel string

// Permission levels, ordered from least to most privileged.
const (
	LevelNone      PermissionLevel = "_none"
	LevelRead      PermissionLevel = "layer_readonly"
	LevelReadWrite PermissionLevel = "layer_readwrite"
	LevelAdmin     PermissionLevel = "layer_admin"
)

var levelRank = map[PermissionLevel]int{
	LevelNone:      0,
	LevelRead:      1,
	LevelReadWrite: 2,
	LevelAdmin:     3,
}

// Valid reports whether l is a known level.
func (l PermissionLevel) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// AtLeast reports whether l grants at least other.
func (l PermissionLevel) AtLeast(other PermissionLevel) bool {
	return levelRank[l] >= levelRank[other]
}

// UserPermission grants a level to a single user.
type UserPermission struct {
	Username string
	Level    PermissionLevel
}

// MarshalJSON encodes the grant as ["username", "level"].
func (p UserPermission) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Username, string(p.Level)})
}

// UnmarshalJSON decodes ["username", "level"].
func (p *UserPermission) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.Username = pair[0]
	p.Level = PermissionLevel(pair[1])
	return nil
}

// UnmarshalYAML decodes a [username, level] sequence.
func (p *UserPermission) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var pair []string
	if err := unmarshal(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("user permission must be [username, level], got %d values", len(pair))
	}
	p.Username = pair[0]
	p.Level = PermissionLevel(pair[1])
	return nil
}

// PermissionSpec is the access control settings of a layer:
//
//	{"anonymous": "_none", "authenticated": "layer_readwrite", "users": [["admin", "layer_admin"]]}
type PermissionSpec struct {
	Anonymous     PermissionLevel  `json:"anonymous" yaml:"anonymous"`
	Authenticated PermissionLevel  `json:"authenticated" yaml:"authenticated"`
	Users         []UserPermission `json:"users" yaml:"users"`
}

// DefaultPermissions returns the rules applied to a newly created layer:
// everybody may read, the owner administers.
func DefaultPermissions(owner string) PermissionSpec {
	spec := PermissionSpec{
		Anonymous:     LevelRead,
		Authenticated: LevelRead,
	}
	if owner != "" {
		spec.Users = []UserPermission{{Username: owner, Level: LevelAdmin}}
	}
	return spec
}

// Validate checks every level in the permission spec.
func (s PermissionSpec) Validate() error {
	check := func(field string, l PermissionLevel) error {
		if !l.Valid() {
			return &ValidationError{
				Field:      field,
				Value:      l,
				Constraint: "_none|layer_readonly|layer_readwrite|layer_admin",
				Message:    "unknown permission level",
			}
		}
		return nil
	}
	if err := check("anonymous", s.Anonymous); err != nil {
		return err
	}
	if err := check("authenticated", s.Authenticated); err != nil {
		return err
	}
	for _, u := range s.Users {
		if u.Username == "" {
			return &ValidationError{Field: "users", Value: u, Constraint: "non-empty", Message: "username is required"}
		}
		if err := check("users."+u.Username, u.Level); err != nil {
			return err
		}
	}
	return nil
}

// LevelFor returns the effective level of user under these permissions: the highest
// of the anonymous, authenticated and per-user grants that apply.
func (s PermissionSpec) LevelFor(user User) PermissionLevel {
	level := normalize(s.Anonymous)
	if user.IsAnonymous() {
		return level
	}
	if normalize(s.Authenticated).AtLeast(level) {
		level = normalize(s.Authenticated)
	}
	for _, u := range s.Users {
		if u.Username == user.Username && normalize(u.Level).AtLeast(level) {
			level = normalize(u.Level)
		}
	}
	return level
}

// CanView reports whether user may see a layer protected by these permissions.
// Superusers see everything.
func (s PermissionSpec) CanView(user User) bool {
	if user.IsSuperuser {
		return true
	}
	return s.LevelFor(user).AtLeast(LevelRead)
}

// CanAdmin reports whether user may change the layer's permissions.
func (s PermissionSpec) CanAdmin(user User) bool {
	if user.IsSuperuser {
		return true
	}
	return s.LevelFor(user).AtLeast(LevelAdmin)
}

func normalize(l PermissionLevel) PermissionLevel {
	if l == "" {
		return LevelNone
	}
	return l
}
