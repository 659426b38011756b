package shared

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPForScore(t *testing.T) {
	tests := []struct {
		score Score
		want  int
	}{
		{0, 10},
		{-50, 10},
		{99, 10},
		{100, 10},
		{109.9, 10},
		{110, 11},
		{250, 25},
		{1e12, int(MaxXP)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, XPForScore(tt.score), "score %v", tt.score)
	}
}

func TestXPLevelTable(t *testing.T) {
	tests := []struct {
		xp   XP
		want Level
	}{
		{0, 1}, {99, 1}, {100, 2}, {299, 2}, {300, 3}, {599, 3}, {600, 4}, {1000, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.xp.Level(), "xp %d", tt.xp)
		assert.LessOrEqual(t, tt.want.RequiredXP(), int(tt.xp))
	}
}

func TestDifficultyClamp(t *testing.T) {
	assert.Equal(t, MaxDifficulty, MaxDifficulty.Harder())
	assert.Equal(t, MinDifficulty, MinDifficulty.Easier())
	assert.Equal(t, Difficulty(3), Difficulty(2).Harder())
	assert.Equal(t, MinDifficulty, Difficulty(-7).Clamp())
}

func TestNewScore(t *testing.T) {
	s, err := NewScore(-12.5)
	assert.NoError(t, err)
	assert.Equal(t, Score(-12.5), s)

	_, err = NewScore(math.NaN())
	assert.True(t, IsValidation(err))
	_, err = NewScore(math.Inf(1))
	assert.True(t, errors.Is(err, ErrInvalidScore))
}

func TestCredentials(t *testing.T) {
	_, err := NewUsername("")
	assert.True(t, errors.Is(err, ErrEmptyValue))
	_, err = NewUsername("ab")
	assert.True(t, IsValidation(err))
	u, err := NewUsername(" bob ")
	assert.NoError(t, err)
	assert.Equal(t, Username("bob"), u)

	assert.True(t, IsValidation(ValidatePassword("")))
	assert.True(t, IsValidation(ValidatePassword("12345")))
	assert.NoError(t, ValidatePassword("123456"))
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, IsConflict(ErrUsernameTaken))
	assert.False(t, IsValidation(ErrUsernameTaken))
	assert.True(t, IsUnauthorized(ErrInvalidCredentials))
	assert.True(t, IsNotFound(ErrTopicNotFound))
	assert.True(t, IsValidation(ErrLessonLocked))

	wrapped := WrapError("user", "Create", ErrConflict, "insert", errors.New("dup"))
	assert.True(t, IsConflict(wrapped))
	assert.Contains(t, wrapped.Error(), "user.Create")
}
