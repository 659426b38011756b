package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

func TestLessonSet_InsertKeepsOrder(t *testing.T) {
	var s LessonSet
	var added bool

	for _, id := range []LessonID{3, 1, 4, 1, 2} {
		s, _ = s.Insert(id)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, s.Ints())

	s2, added := s.Insert(2)
	assert.False(t, added)
	assert.Equal(t, s, s2)

	s3, added := s.Insert(7)
	assert.True(t, added)
	assert.Equal(t, []int{1, 2, 3, 4}, s.Ints(), "receiver must not change")
	assert.Equal(t, []int{1, 2, 3, 4, 7}, s3.Ints())
	assert.True(t, s3.Contains(7))
	assert.False(t, s3.Contains(5))
}

func TestLessonDocuments_RoundTrip(t *testing.T) {
	set := NewLessonSet(4, 2, 1)
	details := LessonDetails{
		1: {Score: 80, Completed: true, CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)},
		2: {Score: 92.5, Completed: true, CompletedAt: time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC)},
		4: {Score: -3, Completed: true, CompletedAt: time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)},
	}

	rawSet, err := EncodeLessonSet(set)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,4]`, string(rawSet))

	rawDetails, err := EncodeLessonDetails(details)
	require.NoError(t, err)

	gotSet, err := DecodeLessonSet(rawSet)
	require.NoError(t, err)
	assert.Equal(t, set, gotSet)

	gotDetails, err := DecodeLessonDetails(rawDetails)
	require.NoError(t, err)
	require.Len(t, gotDetails, len(details))
	for id, want := range details {
		got := gotDetails[id]
		assert.Equal(t, want.Score, got.Score)
		assert.True(t, got.Completed)
		assert.True(t, want.CompletedAt.Equal(got.CompletedAt))
	}
}

func TestDecodeLessonSet_Normalizes(t *testing.T) {
	got, err := DecodeLessonSet([]byte(`[3, 1, 3, 2]`))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got.Ints())
}

func TestDecode_MissingDocumentsAreEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("null"), []byte("  ")} {
		set, err := DecodeLessonSet(raw)
		require.NoError(t, err)
		assert.Empty(t, set)

		details, err := DecodeLessonDetails(raw)
		require.NoError(t, err)
		assert.Empty(t, details)
	}
}

func TestDecode_CorruptDocumentsFallBackToEmpty(t *testing.T) {
	corruptSets := []string{`{"a":1}`, `["two"]`, `[0]`, `[-4]`, `not json`}
	for _, raw := range corruptSets {
		set, err := DecodeLessonSet([]byte(raw))
		assert.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrCorruptDocument), raw)
		assert.True(t, shared.IsValidation(err), raw)
		assert.NotNil(t, set)
		assert.Empty(t, set)
	}

	corruptDetails := []string{
		`[1,2]`,
		`{"x": {"score": 1, "completed": true, "completed_at": "2026-01-01T00:00:00Z"}}`,
		`{"0": {"score": 1, "completed": true, "completed_at": "2026-01-01T00:00:00Z"}}`,
		`{"1": {"completed": true, "completed_at": "2026-01-01T00:00:00Z"}}`,
		`{"1": {"score": 1, "completed": false, "completed_at": "2026-01-01T00:00:00Z"}}`,
		`{"1": {"score": 1, "completed": true}}`,
		`{"1": {"score": 1, "completed": true, "completed_at": "yesterday"}}`,
		`{"1": "done"}`,
	}
	for _, raw := range corruptDetails {
		details, err := DecodeLessonDetails([]byte(raw))
		assert.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrCorruptDocument), raw)
		assert.NotNil(t, details)
		assert.Empty(t, details)
	}
}

func TestDecode_KeepsValidEntries(t *testing.T) {
	set, err := DecodeLessonSet([]byte(`[3, "two", 0, 1, 1.5, 3]`))
	assert.True(t, errors.Is(err, ErrCorruptDocument))
	assert.Equal(t, []int{1, 3}, set.Ints())

	details, err := DecodeLessonDetails([]byte(`{
		"1": {"score": 80, "completed": true, "completed_at": "2026-01-01T00:00:00Z"},
		"2": {"score": 90, "completed": false, "completed_at": "2026-01-02T00:00:00Z"},
		"0": {"score": 70, "completed": true, "completed_at": "2026-01-03T00:00:00Z"},
		"4": {"score": 60, "completed": true, "completed_at": "2026-01-04T00:00:00Z"}
	}`))
	assert.True(t, errors.Is(err, ErrCorruptDocument))
	require.Len(t, details, 2)
	assert.Equal(t, 80.0, details[1].Score)
	assert.Equal(t, 60.0, details[4].Score)
	assert.Contains(t, err.Error(), `"0", "2"`)
}

func TestLessonSet_MarshalEmptyAsArray(t *testing.T) {
	raw, err := LessonSet(nil).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}
