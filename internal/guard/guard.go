// Package guard decides what a protected route does for a given session.
package guard

type Outcome int

const (
	Render Outcome = iota
	ShowLoading
	RedirectSelectRole
	RedirectUnauthorized
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case ShowLoading:
		return "loading"
	case RedirectSelectRole:
		return "redirect_select_role"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	}
	return "unknown"
}

// Redirect target for the outcome, empty when nothing redirects.
func (o Outcome) Location() string {
	switch o {
	case RedirectSelectRole:
		return "/select-role"
	case RedirectUnauthorized:
		return "/unauthorized"
	}
	return ""
}

type AuthState struct {
	Authenticated bool
	Loading       bool
}

// ModuleAccess answers entitlement questions for the current user and tenant.
type ModuleAccess interface {
	Loading() bool
	HasModuleAccess(module string) bool
}

// Decide evaluates the checks in order: loading, authentication, module access.
func Decide(auth AuthState, access ModuleAccess, module string) Outcome {
	if auth.Loading || (access != nil && access.Loading()) {
		return ShowLoading
	}
	if !auth.Authenticated {
		return RedirectSelectRole
	}
	if access == nil || !access.HasModuleAccess(module) {
		return RedirectUnauthorized
	}
	return Render
}
