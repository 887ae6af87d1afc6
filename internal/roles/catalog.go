package roles

// Permission names used across the platform. Route guards and services
// reference these instead of raw strings.
const (
	PermTeamCreate       = "team.create"
	PermTeamDelete       = "team.delete"
	PermTeamUpdate       = "team.update"
	PermTeamView         = "team.view"
	PermTeamAddMember    = "team.add_member"
	PermTeamRemoveMember = "team.remove_member"
	PermRoleCreate       = "role.create"
	PermRoleUpdate       = "role.update"
	PermRoleDelete       = "role.delete"
	PermRoleView         = "role.view"
	PermUserAssignRole   = "user.assign_role"
	PermUserView         = "user.view"
	PermItemCreate       = "item.create"
	PermItemView         = "item.view"
	PermItemUpdate       = "item.update"
	PermItemDelete       = "item.delete"
	PermItemReset        = "item.reset"
	PermReportsCreate    = "reports.create"
	PermReportsView      = "reports.view"
	PermReportsDelete    = "reports.delete"
)

// Seeded role names.
const (
	RoleOwner   = "Owner"
	RoleManager = "Manager"
	RoleMember  = "Member"
)

// DefaultRole describes one seeded role.
type DefaultRole struct {
	Name        string
	Description string
	Permissions []string
}

// DefaultRoles is the catalog seeded at startup. Seeding only inserts
// missing rows; customized copies of these ids are never overwritten.
var DefaultRoles = []DefaultRole{
	{
		Name:        RoleOwner,
		Description: "Full control over the team, its roles and its inventory",
		Permissions: []string{
			PermTeamCreate, PermTeamDelete, PermTeamUpdate, PermTeamView,
			PermTeamAddMember, PermTeamRemoveMember,
			PermRoleCreate, PermRoleUpdate, PermRoleDelete, PermRoleView,
			PermUserAssignRole, PermUserView,
			PermItemCreate, PermItemView, PermItemUpdate, PermItemDelete, PermItemReset,
			PermReportsCreate, PermReportsView, PermReportsDelete,
		},
	},
	{
		Name:        RoleManager,
		Description: "Manages members and day-to-day inventory work",
		Permissions: []string{
			PermTeamCreate, PermTeamAddMember, PermTeamRemoveMember, PermTeamView,
			PermItemCreate, PermItemView, PermItemUpdate,
			PermReportsCreate, PermReportsView,
		},
	},
	{
		Name:        RoleMember,
		Description: "Views inventory and files damage reports",
		Permissions: []string{
			PermTeamView,
			PermItemView,
			PermReportsCreate, PermReportsView,
		},
	},
}
