package server

import (
	"context"
	"time"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/repository/rest"
	tokens "project-tracker/internal/session"
)

// RemoteAuth delegates logins to the REST API. Tokens are only decoded here;
// the API verifies them on every call the session's tracker makes.
type RemoteAuth struct {
	client *rest.Client
	now    func() time.Time
}

func NewRemoteAuth(client *rest.Client) *RemoteAuth {
	return &RemoteAuth{client: client, now: time.Now}
}

func (a *RemoteAuth) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	resp, err := a.client.Login(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	user := resp.User
	return resp.Token, &user, nil
}

func (a *RemoteAuth) Identify(_ context.Context, token string) (*domain.User, error) {
	claims, err := tokens.DecodeUnverified(token)
	if err != nil {
		return nil, apperrors.NewUnauthenticatedError("decode token")
	}
	if exp := claims.ExpiresAtTime(); !exp.IsZero() && !a.now().Before(exp) {
		return nil, apperrors.NewUnauthenticatedError("token expired")
	}
	user := claims.User()
	return &user, nil
}

// PasswordChecker verifies credentials against a local user table.
type PasswordChecker interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// LocalAuth issues and verifies HS256 tokens itself, for stores opened in
// process.
type LocalAuth struct {
	users  PasswordChecker
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewLocalAuth(users PasswordChecker, secret []byte, ttl time.Duration) *LocalAuth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LocalAuth{users: users, secret: secret, ttl: ttl, now: time.Now}
}

func (a *LocalAuth) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := a.users.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, err := tokens.IssueToken(a.secret, *user, a.ttl, a.now())
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (a *LocalAuth) Identify(_ context.Context, token string) (*domain.User, error) {
	claims, err := tokens.VerifyToken(a.secret, token)
	if err != nil {
		return nil, apperrors.NewUnauthenticatedError("verify token")
	}
	user := claims.User()
	return &user, nil
}
