package domain

import (
	"database/sql/driver"

	"github.com/lib/pq"
)

// Role is one of the fixed application roles, ordered by dominance:
// superadmin > admin > instructor > member.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleMember     Role = "member"
)

// roleRank maps a role to its dominance level. Unknown roles rank below member.
var roleRank = map[Role]int{
	RoleSuperAdmin: 3,
	RoleAdmin:      2,
	RoleInstructor: 1,
	RoleMember:     0,
}

// IsKnown reports whether r is one of the fixed application roles.
func (r Role) IsKnown() bool {
	_, ok := roleRank[r]
	return ok
}

// RoleSet is a user's role collection, kept normalized (deduplicated,
// member always present, sorted by descending dominance).
type RoleSet []Role

// NormalizeRoles turns a raw role collection plus an optional legacy
// single-role field into a canonical RoleSet. Unknown roles are dropped,
// duplicates removed, and the member role is always included, so the result
// is never empty. Normalizing an already-normalized set is a no-op.
func NormalizeRoles(raw []Role, legacy Role) RoleSet {
	seen := make(map[Role]bool, len(raw)+2)
	for _, r := range raw {
		if r.IsKnown() {
			seen[r] = true
		}
	}
	if legacy.IsKnown() {
		seen[legacy] = true
	}
	seen[RoleMember] = true

	out := make(RoleSet, 0, len(seen))
	for _, r := range []Role{RoleSuperAdmin, RoleAdmin, RoleInstructor, RoleMember} {
		if seen[r] {
			out = append(out, r)
		}
	}
	return out
}

// Has reports whether the set contains the given role.
func (rs RoleSet) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// Highest returns the most dominant role in the set. An empty set counts
// as member.
func (rs RoleSet) Highest() Role {
	best := RoleMember
	for _, r := range rs {
		if roleRank[r] > roleRank[best] {
			best = r
		}
	}
	return best
}

// AtLeast reports whether the set satisfies the given role: it holds the
// role itself or any more dominant one.
func (rs RoleSet) AtLeast(role Role) bool {
	return roleRank[rs.Highest()] >= roleRank[role]
}

// IsAdmin reports whether the set carries admin-level rights.
func (rs RoleSet) IsAdmin() bool {
	return rs.Has(RoleSuperAdmin) || rs.Has(RoleAdmin)
}

// IsInstructor reports whether the set carries instructor-level rights.
func (rs RoleSet) IsInstructor() bool {
	return rs.IsAdmin() || rs.Has(RoleInstructor)
}

// Business capabilities, each a named predicate over the role set.

func (rs RoleSet) CanManageGyms() bool        { return rs.Has(RoleSuperAdmin) }
func (rs RoleSet) CanManageUsers() bool       { return rs.IsAdmin() }
func (rs RoleSet) CanManageInvitations() bool { return rs.IsAdmin() }
func (rs RoleSet) CanBlockUsers() bool        { return rs.IsAdmin() }
func (rs RoleSet) CanManageClasses() bool     { return rs.IsInstructor() }

// CanAssignRole reports whether a holder of this set may grant the target
// role to another user. Only a superadmin may grant superadmin; admins may
// grant any lower role.
func (rs RoleSet) CanAssignRole(target Role) bool {
	if target == RoleSuperAdmin {
		return rs.Has(RoleSuperAdmin)
	}
	return rs.IsAdmin()
}

// CanRemoveRole mirrors CanAssignRole for revocation.
func (rs RoleSet) CanRemoveRole(target Role) bool {
	return rs.CanAssignRole(target)
}

// Strings returns the set as plain strings, for token claims.
func (rs RoleSet) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// Scan implements sql.Scanner so a RoleSet maps onto a postgres text[].
func (rs *RoleSet) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	set := make(RoleSet, len(arr))
	for i, s := range arr {
		set[i] = Role(s)
	}
	*rs = set
	return nil
}

// Value implements driver.Valuer.
func (rs RoleSet) Value() (driver.Value, error) {
	arr := make(pq.StringArray, len(rs))
	for i, r := range rs {
		arr[i] = string(r)
	}
	return arr.Value()
}
