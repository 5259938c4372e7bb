package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-tracker/internal/domain"
)

func TestActorContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ActorFrom(ctx))
	assert.Equal(t, ctx, WithActor(ctx, nil))

	user := &domain.User{ID: 4, Username: "ana", Roles: []domain.Role{domain.RoleManager}}
	ctx = WithActor(ctx, user)
	user.Roles[0] = domain.RoleAdmin

	actor := ActorFrom(ctx)
	require.NotNil(t, actor)
	assert.Equal(t, "ana", actor.Username)
	assert.Equal(t, []domain.Role{domain.RoleManager}, actor.Roles, "the stored actor is a copy")
}
