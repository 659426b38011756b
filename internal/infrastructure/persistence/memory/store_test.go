package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/progress"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

const uid = shared.UserID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(timeutil.NewFixedClock(now))
	ctx := context.Background()

	u, err := user.NewUser(user.NewUserParams{ID: string(uid), Username: "grace", PasswordHash: "h", Now: now})
	require.NoError(t, err)
	require.NoError(t, s.Users().Create(ctx, u))
	require.NoError(t, s.Profiles().Create(ctx, user.NewProfile(uid, now)))

	require.NoError(t, s.Catalog().Seed(ctx, catalog.Seed{
		Topics: []catalog.TopicSeed{{
			Topic: catalog.Topic{Slug: "prompt-engineering", Name: "Prompt Engineering", DifficultyLevel: 1},
			Templates: []catalog.ContentTemplate{
				{Name: "Adding Context", Type: catalog.TemplateContextLessons},
			},
		}},
		Lessons: []catalog.Lesson{{ID: 2, Title: "Context is Key"}, {ID: 1, Title: "Prompt Fundamentals"}},
	}))
	return s
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.Progress().Update(ctx, uid, func(r *progress.Record) error {
			r.CompleteLesson(1, 90, now)
			return nil
		})
		require.NoError(t, err)
		_, err = s.Profiles().Update(ctx, uid, func(p *user.Profile) error {
			p.AddXP(10, now)
			return nil
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rec, err := s.Progress().GetOrCreate(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.LessonsCompleted)

	p, err := s.Profiles().GetByUserID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, shared.XP(0), p.TotalXP)
}

func TestProgress_ReturnedRecordsAreCopies(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	rec, err := s.Progress().GetOrCreate(ctx, uid)
	require.NoError(t, err)
	rec.CompleteLesson(3, 50, now)

	again, err := s.Progress().GetOrCreate(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, again.CompletedLessons.Len())
}

func TestProgress_UnknownUser(t *testing.T) {
	s := seededStore(t)
	_, err := s.Progress().GetOrCreate(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.True(t, shared.IsNotFound(err))
}

func TestTopicProgress_UnknownTopicAndDefaults(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	_, err := s.TopicProgress().Update(ctx, uid, 999, func(*progress.TopicProgress) error { return nil })
	assert.True(t, errors.Is(err, shared.ErrTopicNotFound))

	tp, err := s.TopicProgress().GetOrDefault(ctx, uid, 1)
	require.NoError(t, err)
	assert.Equal(t, shared.MinDifficulty, tp.CurrentDifficulty)

	_, err = s.TopicProgress().Update(ctx, uid, 1, func(tp *progress.TopicProgress) error {
		tp.RecordScore(95, now)
		return nil
	})
	require.NoError(t, err)

	list, err := s.TopicProgress().ListByUser(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, shared.Difficulty(2), list[0].CurrentDifficulty)
}

func TestSeed_IsIdempotent(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	topic, err := s.Catalog().GetTopicBySlug(ctx, "prompt-engineering")
	require.NoError(t, err)

	require.NoError(t, s.Catalog().Seed(ctx, catalog.Seed{
		Topics: []catalog.TopicSeed{{
			Topic:     catalog.Topic{Slug: "prompt-engineering", Name: "Prompt Engineering v2", DifficultyLevel: 9},
			Templates: []catalog.ContentTemplate{{Name: "Adding Context", Type: catalog.TemplateContextLessons}},
		}},
	}))

	again, err := s.Catalog().GetTopicBySlug(ctx, "prompt-engineering")
	require.NoError(t, err)
	assert.Equal(t, topic.ID, again.ID)
	assert.Equal(t, "Prompt Engineering v2", again.Name)
	assert.Equal(t, shared.MaxDifficulty, again.DifficultyLevel)

	templates, err := s.Catalog().ListTemplates(ctx, topic.ID)
	require.NoError(t, err)
	assert.Len(t, templates, 1)

	lessons, err := s.Catalog().ListLessons(ctx)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, 1, lessons[0].ID)
}

func TestUsers_DuplicateUsername(t *testing.T) {
	s := seededStore(t)
	u, err := user.NewUser(user.NewUserParams{
		ID:           "7ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Username:     "grace",
		PasswordHash: "h",
	})
	require.NoError(t, err)
	assert.True(t, shared.IsConflict(s.Users().Create(context.Background(), u)))
}
