package service

import (
	"context"
	"testing"

	"github.com/example/storefront/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlist(t *testing.T) {
	env := newTestEnv(t)
	acc := env.account(t, nil)
	ctx := context.Background()

	list, err := env.wishlist.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = env.wishlist.Add(ctx, acc.ID, "p1")
	require.NoError(t, err)
	list, err = env.wishlist.Add(ctx, acc.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, list)

	list, err = env.wishlist.Add(ctx, acc.ID, "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, list)

	list, err = env.wishlist.Remove(ctx, acc.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, list)

	_, err = env.wishlist.Add(ctx, acc.ID, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.wishlist.Add(ctx, "", "p1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = env.wishlist.Remove(ctx, "missing", "p1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
