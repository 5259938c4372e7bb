package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/repository/sqlite/migrations"
)

// CreateUser stores user with a bcrypt hash of password.
func (r *SQLiteRepository) CreateUser(ctx context.Context, user domain.User, password string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("password", "", err.Error())
	}

	query := `
	INSERT INTO users (username, email, password_hash, roles, created_at)
	VALUES (?, ?, ?, ?, ?)`

	id, err := ExecuteWithLastInsertID(ctx, r.db, query,
		strings.TrimSpace(user.Username), user.Email, string(hash), migrations.JoinRoles(user.EffectiveRoles()), r.timestamp())
	if err != nil {
		return nil, err
	}
	return r.GetUser(ctx, id)
}

// Authenticate checks the credentials and returns the matching user.
func (r *SQLiteRepository) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	var id int64
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE username = ?`, strings.TrimSpace(username)).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewUnauthenticatedError("login")
	}
	if err != nil {
		return nil, HandleDatabaseError("authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, apperrors.NewUnauthenticatedError("login")
	}
	return r.GetUser(ctx, id)
}

// GetUser retrieves a user by ID
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return QuerySingle(ctx, r.db, "SELECT "+userColumns+" WHERE u.id = ?", ScanUser, "user", id, id)
}

// ListUsers returns users holding role, or every user when role is empty.
func (r *SQLiteRepository) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	users, err := QueryMultiple(ctx, r.db, "SELECT "+userColumns+" ORDER BY u.username ASC", ScanUser, "users")
	if err != nil || role == "" {
		return users, err
	}

	filtered := users[:0]
	for _, u := range users {
		if u.HasRole(role) {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// CountUsers returns the number of registered users.
func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, HandleDatabaseError("count users", err)
	}
	return count, nil
}
