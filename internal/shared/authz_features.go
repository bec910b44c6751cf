package shared

import (
	"sort"

	"github.com/prakerin/prakerin/internal/rbac"
)

// Requirements of the dashboard feature actions. Each pairs the roles that
// may always perform the action with the permission codes that grant it to
// anyone else.
var (
	AttendanceRead = rbac.Requirement{
		Roles: []string{"hubdin", "pembimbing-sekolah", "pembimbing-perusahaan", "siswa"},
		Permissions: []string{
			"attendance.read", "attendance.view", "attendance.*",
			"dashboard.siswa.access", "dashboard.pembimbing-sekolah.access",
			"dashboard.pembimbing-perusahaan.access", "dashboard.hubdin.access",
		},
	}
	AttendanceWrite = rbac.Requirement{
		Roles: []string{"hubdin", "siswa"},
		Permissions: []string{
			"attendance.write", "attendance.create", "attendance.update",
			"attendance.manage", "attendance.*",
		},
	}

	JournalsRead = rbac.Requirement{
		Roles: []string{"hubdin", "kaprog", "pembimbing-sekolah", "pembimbing-perusahaan", "siswa"},
		Permissions: []string{
			"journals.read", "journals.view", "journals.*",
			"dashboard.siswa.access", "dashboard.pembimbing-sekolah.access",
			"dashboard.pembimbing-perusahaan.access", "dashboard.kaprog.access",
			"dashboard.hubdin.access",
		},
	}
	JournalsWrite = rbac.Requirement{
		Roles: []string{"hubdin", "siswa"},
		Permissions: []string{
			"journals.create", "journals.update", "journals.write",
			"journals.manage", "journals.*",
		},
	}
	JournalsValidate = rbac.Requirement{
		Roles: []string{"hubdin", "pembimbing-sekolah", "pembimbing-perusahaan"},
		Permissions: []string{
			"journals.validate", "journals.approve", "journals.review",
			"journals.manage", "journals.*",
		},
	}
	JournalsDelete = rbac.Requirement{
		Roles:       []string{"hubdin", "siswa"},
		Permissions: []string{"journals.delete", "journals.manage", "journals.*"},
	}

	StudentsRead = rbac.Requirement{
		Roles: []string{"hubdin", "operator"},
		Permissions: []string{
			"students.read", "students.view", "students.*",
			"master.students.read", "master-data.students.read",
			"dashboard.operator.access", "dashboard.hubdin.access",
		},
	}
	StudentsWrite = rbac.Requirement{
		Roles: []string{"hubdin", "operator"},
		Permissions: []string{
			"students.create", "students.update", "students.delete",
			"students.write", "students.manage", "students.*",
			"master.students.write", "master-data.students.write",
		},
	}

	OperatorStats = rbac.Requirement{
		Roles: []string{"hubdin", "operator"},
		Permissions: []string{
			"dashboard.operator.access", "dashboard.hubdin.access", "dashboard.*",
			"students.read", "students.view", "students.*",
			"placements.read", "placements.view", "placements.*",
		},
	}

	SupervisionHandover = rbac.Requirement{
		Roles:       []string{"pembimbing-sekolah", "hubdin"},
		Permissions: []string{"dashboard.pembimbing-sekolah.access", "supervision.handover.*"},
	}
	CompanyProfile = rbac.Requirement{
		Roles:       []string{"pembimbing-perusahaan", "hubdin"},
		Permissions: []string{"dashboard.pembimbing-perusahaan.access"},
	}
	Grades = rbac.Requirement{
		Roles:       []string{"pembimbing-perusahaan", "hubdin"},
		Permissions: []string{"dashboard.pembimbing-perusahaan.access", "grades.manage", "grades.*"},
	}

	KaprogManage = rbac.Requirement{
		Roles: []string{"kaprog", "hubdin"},
		Permissions: []string{
			"dashboard.kaprog.access", "placements.manage",
			"companies.manage", "supervisors.manage", "kaprog.*",
		},
	}

	SettingsManage = rbac.Requirement{
		Roles:       []string{"hubdin"},
		Permissions: []string{"settings.manage", "settings.*", "dashboard.hubdin.access"},
	}
	UsersManage = rbac.Requirement{
		Roles:       []string{"hubdin"},
		Permissions: []string{"users.manage", "users.*", "rbac.manage", "dashboard.hubdin.access"},
	}
	RBACManage = rbac.ManageRequirement
)

// FeatureRequirements indexes the requirements by feature action name.
func FeatureRequirements() map[string]rbac.Requirement {
	return map[string]rbac.Requirement{
		"attendance.read":      AttendanceRead,
		"attendance.write":     AttendanceWrite,
		"journals.read":        JournalsRead,
		"journals.write":       JournalsWrite,
		"journals.validate":    JournalsValidate,
		"journals.delete":      JournalsDelete,
		"students.read":        StudentsRead,
		"students.write":       StudentsWrite,
		"operator.stats":       OperatorStats,
		"supervision.handover": SupervisionHandover,
		"company.profile":      CompanyProfile,
		"grades.manage":        Grades,
		"kaprog.manage":        KaprogManage,
		"settings.manage":      SettingsManage,
		"users.manage":         UsersManage,
		"rbac.manage":          RBACManage,
	}
}

// AllowedFeatures returns the sorted names of the feature actions authz may
// perform.
func AllowedFeatures(authz *rbac.AuthorizationContext) []string {
	features := make([]string, 0)
	for name, req := range FeatureRequirements() {
		if rbac.Decide(authz, req).Allowed {
			features = append(features, name)
		}
	}
	sort.Strings(features)
	return features
}
