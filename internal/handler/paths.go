package handler

import (
	"net/url"
	"strings"

	"github.com/DukeRupert/loadshare/internal/domain"
)

// URL paths of the pages a destination can name.
const (
	PathHome               = "/"
	PathLogin              = "/login"
	PathRegister           = "/register"
	PathDashboard          = "/dashboard"
	PathLoadOwnerDashboard = "/dashboard/load-owner"
	PathDriverDashboard    = "/dashboard/driver"
)

// DestinationPath maps a logical destination to its URL path.
func DestinationPath(d domain.Destination) string {
	switch d {
	case domain.DestinationLogin:
		return PathLogin
	case domain.DestinationLoadOwnerDashboard:
		return PathLoadOwnerDashboard
	case domain.DestinationDriverDashboard:
		return PathDriverDashboard
	}
	return PathHome
}

// DashboardPath returns the dashboard URL of a role.
func DashboardPath(role domain.Role) string {
	return DestinationPath(role.Dashboard())
}

// LoadPath returns the detail page of a load.
func LoadPath(id string) string {
	return "/loads/" + id
}

// LoginRedirect returns the login URL that brings the user back to target.
func LoginRedirect(target string) string {
	return PathLogin + "?return_to=" + url.QueryEscape(target)
}

// SafeReturnTo accepts only local absolute paths so return_to cannot be
// used as an open redirect.
func SafeReturnTo(target string) (string, bool) {
	if target == "" || !strings.HasPrefix(target, "/") {
		return "", false
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "", false
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return target, true
}
