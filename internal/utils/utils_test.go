package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	t.Run("SetUserContext and GetUserIDFromContext", func(t *testing.T) {
		ctx := context.Background()
		userID := uint(100)
		email := "user@example.com"
		role := "user"

		ctx = SetUserContext(ctx, userID, email, role)
		assert.NotNil(t, ctx)

		id, ok := GetUserIDFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, userID, id)

		assert.Equal(t, email, GetUserEmailFromContext(ctx))
		assert.Equal(t, role, GetUserRoleFromContext(ctx))
		assert.False(t, IsAdmin(ctx))
	})

	t.Run("GetUserIDFromContext with empty context", func(t *testing.T) {
		_, ok := GetUserIDFromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("Zero ID is not authenticated", func(t *testing.T) {
		ctx := SetUserContext(context.Background(), 0, "", "")
		_, ok := GetUserIDFromContext(ctx)
		assert.False(t, ok)
	})

	t.Run("Admin", func(t *testing.T) {
		ctx := SetUserContext(context.Background(), 1, "admin@example.com", RoleAdmin)
		assert.True(t, IsAdmin(ctx))
	})
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name              string
		page, limit       int
		wantPage, wantLim int
	}{
		{"defaults", 0, 0, 1, 10},
		{"negative", -3, -1, 1, 10},
		{"capped", 2, 500, 2, 50},
		{"passthrough", 3, 20, 3, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, l := NormalizePage(tt.page, tt.limit, 10, 50)
			assert.Equal(t, tt.wantPage, p)
			assert.Equal(t, tt.wantLim, l)
		})
	}

	assert.Equal(t, 20, Offset(3, 10))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	last := NewPagination(3, 10, 25)
	assert.False(t, last.HasNext)

	empty := NewPagination(1, 10, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrev)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 7, AtoiDefault("7", 1))
	assert.Equal(t, 1, AtoiDefault("x", 1))
	assert.Equal(t, 1, AtoiDefault("", 1))

	assert.Nil(t, ParseBoolPtr(""))
	assert.True(t, *ParseBoolPtr("true"))

	assert.Nil(t, TrimmedPtr(StrPtr("   ")))
	assert.Equal(t, "note", *TrimmedPtr(StrPtr(" note ")))
	assert.Equal(t, "", PtrString(nil))
}
