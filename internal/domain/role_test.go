package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoles_AlwaysContainsMember(t *testing.T) {
	cases := []struct {
		name   string
		raw    []Role
		legacy Role
		want   RoleSet
	}{
		{"empty input", nil, "", RoleSet{RoleMember}},
		{"duplicates collapse", []Role{RoleAdmin, RoleAdmin, RoleMember}, "", RoleSet{RoleAdmin, RoleMember}},
		{"legacy unioned", []Role{RoleMember}, RoleInstructor, RoleSet{RoleInstructor, RoleMember}},
		{"legacy already present", []Role{RoleAdmin}, RoleAdmin, RoleSet{RoleAdmin, RoleMember}},
		{"unknown dropped", []Role{"owner", RoleInstructor}, "manager", RoleSet{RoleInstructor, RoleMember}},
		{"full set ordered by dominance", []Role{RoleMember, RoleInstructor, RoleSuperAdmin, RoleAdmin}, "", RoleSet{RoleSuperAdmin, RoleAdmin, RoleInstructor, RoleMember}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeRoles(tc.raw, tc.legacy)
			assert.Equal(t, tc.want, got)
			assert.True(t, got.Has(RoleMember))
			assert.NotEmpty(t, got)
		})
	}
}

func TestNormalizeRoles_Idempotent(t *testing.T) {
	inputs := [][]Role{
		nil,
		{RoleAdmin},
		{RoleSuperAdmin, RoleInstructor, RoleInstructor},
		{"bogus"},
	}
	for _, in := range inputs {
		once := NormalizeRoles(in, "")
		twice := NormalizeRoles(once, "")
		assert.Equal(t, once, twice)
	}
}

func TestRoleSet_Highest(t *testing.T) {
	assert.Equal(t, RoleMember, RoleSet{}.Highest())
	assert.Equal(t, RoleMember, RoleSet{RoleMember}.Highest())
	assert.Equal(t, RoleInstructor, RoleSet{RoleMember, RoleInstructor}.Highest())
	assert.Equal(t, RoleSuperAdmin, RoleSet{RoleAdmin, RoleSuperAdmin, RoleMember}.Highest())
}

func TestRoleSet_AtLeast(t *testing.T) {
	super := NormalizeRoles([]Role{RoleSuperAdmin}, "")
	admin := NormalizeRoles([]Role{RoleAdmin}, "")
	member := NormalizeRoles([]Role{RoleMember}, "")

	assert.True(t, super.AtLeast(RoleAdmin))
	assert.True(t, super.AtLeast(RoleMember))
	assert.True(t, admin.AtLeast(RoleInstructor))
	assert.False(t, admin.AtLeast(RoleSuperAdmin))
	assert.False(t, member.AtLeast(RoleInstructor))
	assert.True(t, member.AtLeast(RoleMember))
}

func TestRoleSet_LevelPredicates(t *testing.T) {
	member := NormalizeRoles([]Role{RoleMember}, "")
	instructor := NormalizeRoles([]Role{RoleInstructor}, "")
	admin := NormalizeRoles([]Role{RoleAdmin}, "")
	super := NormalizeRoles([]Role{RoleSuperAdmin}, "")

	assert.False(t, member.IsAdmin())
	assert.False(t, member.IsInstructor())
	assert.False(t, instructor.IsAdmin())
	assert.True(t, instructor.IsInstructor())
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.IsInstructor())
	assert.True(t, super.IsAdmin())
	assert.True(t, super.CanManageGyms())
	assert.False(t, admin.CanManageGyms())
	assert.True(t, admin.CanManageInvitations())
	assert.False(t, instructor.CanManageInvitations())
}

func TestRoleSet_AssignmentIsAsymmetric(t *testing.T) {
	admin := NormalizeRoles([]Role{RoleAdmin}, "")
	super := NormalizeRoles([]Role{RoleSuperAdmin}, "")

	// An admin may grant instructor and admin, never superadmin.
	assert.True(t, admin.CanAssignRole(RoleInstructor))
	assert.True(t, admin.CanAssignRole(RoleAdmin))
	assert.False(t, admin.CanAssignRole(RoleSuperAdmin))
	assert.False(t, admin.CanRemoveRole(RoleSuperAdmin))

	assert.True(t, super.CanAssignRole(RoleSuperAdmin))
	assert.True(t, super.CanRemoveRole(RoleSuperAdmin))
}

func TestUser_NormalizeFoldsLegacyRole(t *testing.T) {
	legacy := "instructor"
	u := &User{Roles: RoleSet{RoleMember}, LegacyRole: &legacy}
	u.Normalize()
	assert.Equal(t, RoleSet{RoleInstructor, RoleMember}, u.Roles)

	// A second pass changes nothing.
	u.Normalize()
	assert.Equal(t, RoleSet{RoleInstructor, RoleMember}, u.Roles)
}
