package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	cases := map[string]Role{
		"KS":                     "ks",
		"  Hubdin ":              "hubdin",
		"pembimbing_sekolah":     "pembimbing-sekolah",
		"Pembimbing Perusahaan":  "pembimbing-perusahaan",
		"pembimbing__ \tsekolah": "pembimbing-sekolah",
		"pembimbing-perusahaan":  "pembimbing-perusahaan",
		"":                       "",
		"   ":                    "",
		"ÖPERATOR":               "öperator",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRole(in), "input %q", in)
	}
}

func TestStorageRole(t *testing.T) {
	assert.Equal(t, "pembimbing_sekolah", StorageRole("Pembimbing-Sekolah"))
	assert.Equal(t, "pembimbing_perusahaan", StorageRole("pembimbing perusahaan"))
	assert.Equal(t, "siswa", StorageRole(" SISWA "))
}

func TestNormalizePermission(t *testing.T) {
	assert.Equal(t, "dashboard.ks.access", NormalizePermission(" Dashboard.KS.Access "))
	assert.Equal(t, "dashboard:all", NormalizePermission("DASHBOARD:ALL"))
	assert.Equal(t, "journals-read", NormalizePermission("journals_read"))
}

func TestRoleSetKeyIsPermutationStable(t *testing.T) {
	a := RoleSetKey([]Role{"siswa", "KS", "pembimbing_sekolah"})
	b := RoleSetKey([]Role{"pembimbing-sekolah", "ks", "siswa", "Siswa"})
	assert.Equal(t, "ks,pembimbing-sekolah,siswa", a)
	assert.Equal(t, a, b)
	assert.Empty(t, RoleSetKey(nil))
	assert.Empty(t, RoleSetKey([]Role{"", "  "}))
}

func TestIsKnownRole(t *testing.T) {
	assert.True(t, IsKnownRole("Pembimbing_Perusahaan"))
	assert.True(t, IsKnownRole("hubdin"))
	assert.False(t, IsKnownRole("admin"))
	assert.False(t, IsKnownRole(""))
}

func TestSetsNormalizeMembership(t *testing.T) {
	roles := NewRoleSet("KS", "", "pembimbing_sekolah")
	assert.Len(t, roles, 2)
	assert.True(t, roles.Has("pembimbing sekolah"))
	assert.True(t, roles.HasAny([]string{"operator", "ks"}))
	assert.Equal(t, []Role{"ks", "pembimbing-sekolah"}, roles.Sorted())

	perms := NewPermissionSet("Journals.Read", "journals.read", "")
	assert.Equal(t, []string{"journals.read"}, perms.Sorted())
	assert.False(t, perms.HasWildcard())
	assert.True(t, NewPermissionSet("Dashboard:All").HasWildcard())
	assert.True(t, NewPermissionSet("dashboard.*").HasWildcard())
	assert.True(t, NewPermissionSet("*").HasWildcard())

	clone := perms.Clone()
	clone["extra"] = struct{}{}
	assert.NotContains(t, perms, "extra")
}
