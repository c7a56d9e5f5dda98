package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeAccess struct {
	loading bool
	allowed map[string]bool
}

func (f fakeAccess) Loading() bool                 { return f.loading }
func (f fakeAccess) HasModuleAccess(m string) bool { return f.allowed[m] }

func TestDecide(t *testing.T) {
	ready := fakeAccess{allowed: map[string]bool{"reception": true}}
	cases := []struct {
		name   string
		auth   AuthState
		access ModuleAccess
		module string
		want   Outcome
	}{
		{"auth loading", AuthState{Loading: true}, ready, "reception", ShowLoading},
		{"tenant loading", AuthState{Authenticated: true}, fakeAccess{loading: true}, "reception", ShowLoading},
		{"anonymous", AuthState{}, ready, "reception", RedirectSelectRole},
		{"no entitlement", AuthState{Authenticated: true}, ready, "hr", RedirectUnauthorized},
		{"nil access", AuthState{Authenticated: true}, nil, "hr", RedirectUnauthorized},
		{"allowed", AuthState{Authenticated: true}, ready, "reception", Render},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.auth, tc.access, tc.module))
		})
	}
}

// Render happens exactly when the user is authenticated and has access.
func TestRenderIffAuthenticatedAndAllowed(t *testing.T) {
	for _, authed := range []bool{false, true} {
		for _, allowed := range []bool{false, true} {
			acc := fakeAccess{allowed: map[string]bool{"doctor": allowed}}
			got := Decide(AuthState{Authenticated: authed}, acc, "doctor")
			assert.Equal(t, authed && allowed, got == Render, "authed=%v allowed=%v", authed, allowed)
		}
	}
}

func TestLocations(t *testing.T) {
	assert.Equal(t, "/select-role", RedirectSelectRole.Location())
	assert.Equal(t, "/unauthorized", RedirectUnauthorized.Location())
	assert.Empty(t, Render.Location())
	assert.Equal(t, "loading", ShowLoading.String())
}
