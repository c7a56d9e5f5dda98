package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hospverse/internal/domain"
	"hospverse/internal/nav"
	"hospverse/internal/repos"
	"hospverse/internal/session"

	"golang.org/x/crypto/bcrypt"
)

// Demo credentials accepted by the portal login.
const (
	DemoUsername = "abc"
	DemoPassword = "123"
	DemoToken    = "demo_token"
)

type AuthService struct {
	Users    *repos.UserRepo
	Sessions session.Store
	Clock    Clock
}

// DemoLogin signs a browser session into a portal with the demo credentials.
// On a mismatch the session is left untouched.
func (s *AuthService) DemoLogin(ctx context.Context, sid string, portal nav.Role, username, password string) (*domain.User, error) {
	if username != DemoUsername || password != DemoPassword {
		return nil, ErrDemoCreds
	}
	u := &domain.User{
		ID:       fmt.Sprintf("user-%d", s.Clock.now().UnixMilli()),
		Name:     portal.DisplayName() + " User",
		Email:    username,
		Role:     portal.UserRole(),
		ClientID: repos.DefaultTenantID,
	}
	if err := s.store(ctx, sid, u, DemoToken); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks a stored user's bcrypt password and binds the user to sid.
func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.store(ctx, sid, u, "session:"+u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) store(ctx context.Context, sid string, u *domain.User, token string) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.Sessions.Set(ctx, sid, session.KeyCurrentUser, string(b)); err != nil {
		return err
	}
	return s.Sessions.Set(ctx, sid, session.KeyToken, token)
}

// Logout removes the token and user. Calling it on an empty session is fine.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return s.Sessions.Clear(ctx, sid, session.KeyToken, session.KeyCurrentUser)
}

// Profile rereads a stored user so renames and role changes show up without
// a new login. Demo users have no row and come back as they are.
func (s *AuthService) Profile(ctx context.Context, u *domain.User) (*domain.User, error) {
	fresh, err := s.Users.ByID(ctx, u.ID)
	if errors.Is(err, repos.ErrNotFound) {
		return u, nil
	}
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// CurrentUser returns the signed-in user, or ErrNotAuthenticated when the
// session lacks a token or a readable user.
func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	if sid == "" {
		return nil, ErrNotAuthenticated
	}
	tok, err := s.Sessions.Get(ctx, sid, session.KeyToken)
	if errors.Is(err, session.ErrNotFound) || (err == nil && tok == "") {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	raw, err := s.Sessions.Get(ctx, sid, session.KeyCurrentUser)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	var u domain.User
	if json.Unmarshal([]byte(raw), &u) != nil || u.ID == "" {
		return nil, ErrNotAuthenticated
	}
	return &u, nil
}
