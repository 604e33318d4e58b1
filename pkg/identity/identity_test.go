package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdesk/quizdesk/pkg/model"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already normalized", input: "alice", expected: "alice"},
		{name: "mixed case", input: "Alice", expected: "alice"},
		{name: "surrounding whitespace", input: "  Bob\t", expected: "bob"},
		{name: "inner whitespace kept", input: " Mary Ann ", expected: "mary ann"},
		{name: "blank", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUsername(tt.input))
		})
	}
}

func TestValidateUsername(t *testing.T) {
	got, err := ValidateUsername(" Alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	_, err = ValidateUsername(" \n ")
	assert.ErrorIs(t, err, ErrEmptyUsername)
}

func TestIdentity_Roles(t *testing.T) {
	var none *Identity
	assert.False(t, none.IsAdmin())
	assert.False(t, none.IsStudent())

	admin := &Identity{PersistentID: "p1", Role: model.RoleAdmin}
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.IsStudent())

	student := &Identity{PersistentID: "p2", Role: model.RoleStudent}
	assert.True(t, student.IsStudent())
	assert.False(t, student.IsAdmin())
}

func TestFromRecord(t *testing.T) {
	id := FromRecord(&model.Record{ID: "p1", Username: "alice", DisplayName: "Alice", Role: model.RoleStudent})
	assert.Equal(t, &Identity{PersistentID: "p1", DisplayName: "Alice", Role: model.RoleStudent}, id)
}

func TestContextGetSet(t *testing.T) {
	ctx := context.Background()

	// Initially no identity
	id, ok := Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, id)

	expected := &Identity{PersistentID: "p1", DisplayName: "Alice", Role: model.RoleAdmin}
	ctx = Set(ctx, expected)

	id, ok = Get(ctx)
	assert.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, expected, id)

	_, ok = Get(Set(ctx, nil))
	assert.False(t, ok)
}
