package session

import "garage-backend/internal/models"

// Pages of the dashboard.
const (
	PageCalendar  = "calendar"
	PageClients   = "clients"
	PageServices  = "services"
	PageEmployees = "employees"
)

type Access string

const (
	AccessNone   Access = "none"
	AccessView   Access = "view"
	AccessManage Access = "manage"
)

// PageAccess is one entry of the navigation.
type PageAccess struct {
	Page   string `json:"page"`
	Access Access `json:"access"`
}

// Navigation is what the shell may render for a session.
type Navigation struct {
	Pages   []PageAccess `json:"pages"`
	Actions []string     `json:"actions"`
	Message string       `json:"message,omitempty"`
}

// CanManageServices reports whether role may create, edit or delete services.
func CanManageServices(role string) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// CanManageTeam reports whether role may see and edit profiles.
func CanManageTeam(role string) bool {
	return role == models.RoleAdmin
}

// AccessFor returns the access level of role on page.
func AccessFor(role, page string) Access {
	switch page {
	case PageCalendar, PageClients:
		return AccessManage
	case PageServices:
		if CanManageServices(role) {
			return AccessManage
		}
		return AccessView
	case PageEmployees:
		if CanManageTeam(role) {
			return AccessManage
		}
		return AccessNone
	}
	return AccessNone
}

// NavigationFor derives the navigation of s. An inactive account only
// gets the logout action, whatever its role.
func NavigationFor(s Session) Navigation {
	switch s.State {
	case Inactive:
		return Navigation{
			Pages:   []PageAccess{},
			Actions: []string{"logout"},
			Message: "account deactivated",
		}
	case Active:
	default:
		return Navigation{Pages: []PageAccess{}, Actions: []string{"login"}}
	}

	pages := make([]PageAccess, 0, 4)
	for _, p := range []string{PageCalendar, PageClients, PageServices, PageEmployees} {
		pages = append(pages, PageAccess{Page: p, Access: AccessFor(s.Role, p)})
	}
	return Navigation{Pages: pages, Actions: []string{"logout"}}
}
