package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ai-literacy/literacy-hub/config"
	"github.com/ai-literacy/literacy-hub/internal/application/command"
	"github.com/ai-literacy/literacy-hub/internal/application/query"
	"github.com/ai-literacy/literacy-hub/internal/domain/catalog"
	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/persistence/memory"
	"github.com/ai-literacy/literacy-hub/internal/infrastructure/security"
	"github.com/ai-literacy/literacy-hub/internal/interface/http/handlers"
	"github.com/ai-literacy/literacy-hub/pkg/timeutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

type nopPublisher struct{}

func (nopPublisher) Publish(shared.Event) error { return nil }

type failingRevocations struct{}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, shared.ErrServiceUnavailable
}

type envelope struct {
	Success   bool               `json:"success"`
	Data      json.RawMessage    `json:"data"`
	Error     *handlers.APIError `json:"error"`
	RequestID string             `json:"request_id"`
}

type testServer struct {
	srv      *Server
	store    *memory.Store
	features *config.FeatureFlags
}

func newTestServer(t *testing.T, revocations handlers.RevocationChecker) *testServer {
	t.Helper()

	clock := timeutil.NewFixedClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	store := memory.NewStore(clock)
	features := config.NewFeatureFlags()

	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", "literacy-hub", time.Hour, clock)
	revoked := security.NewMemoryRevocationList(clock)
	award := command.NewAwardXPHandler(store.Profiles(), clock)

	require.NoError(t, store.Catalog().Seed(context.Background(), catalog.Seed{
		DefaultTopic: "context-is-key",
		Topics: []catalog.TopicSeed{
			{
				Topic: catalog.Topic{Slug: "context-is-key", Name: "Context is Key", DifficultyLevel: 1},
				Templates: []catalog.ContentTemplate{
					{Name: "adding-context", Type: catalog.TemplateContextLessons, Title: "Adding Context"},
				},
			},
			{Topic: catalog.Topic{Slug: "ai-ethics", Name: "Use AI Ethically", DifficultyLevel: 3}},
		},
		Lessons: []catalog.Lesson{
			{ID: 1, Title: "Prompt Fundamentals"},
			{ID: 2, Title: "Context is Key"},
			{ID: 3, Title: "Think Critically"},
			{ID: 4, Title: "Use AI Ethically"},
		},
	}))

	var checker handlers.RevocationChecker = revoked
	if revocations != nil {
		checker = revocations
	}

	deps := Dependencies{
		RegisterUser:        command.NewRegisterUserHandler(store, store.Users(), store.Profiles(), store.Progress(), hasher, nopPublisher{}, clock, nil),
		LoginUser:           command.NewLoginUserHandler(store.Users(), store.Profiles(), store.Progress(), hasher, tokens, nil),
		LogoutUser:          command.NewLogoutUserHandler(revoked, nil),
		CompleteLesson:      command.NewCompleteLessonHandler(store, store.Progress(), award, nopPublisher{}, features.EnforceLessonOrder, clock, nil),
		CompleteTopicLesson: command.NewCompleteTopicLessonHandler(store, store.TopicProgress(), award, nopPublisher{}, clock, nil),
		PrepareLesson:       command.NewPrepareLessonHandler(store.Catalog(), store.TopicProgress(), store.GeneratedLessons(), "context-is-key", clock, nil),
		GetProgress:         query.NewGetProgressHandler(store.Progress(), nil, nil),
		GetDashboard:        query.NewGetDashboardHandler(store.Profiles(), store.TopicProgress(), store.Catalog()),
		GetUser:             query.NewGetUserHandler(store.Users(), store.Profiles()),
		Catalog:             query.NewCatalogHandler(store.Catalog()),
		Tokens:              tokens,
		Revocations:         checker,
		Features:            features,
	}

	return &testServer{srv: NewServer(DefaultConfig(), deps), store: store, features: features}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

// signup registers and logs in a user, returning the access token.
func (ts *testServer) signup(t *testing.T, username string) string {
	t.Helper()

	rec, _ := ts.do(t, http.MethodPost, "/api/register", gin.H{"username": username, "password": "secret-pw"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := ts.do(t, http.MethodPost, "/api/login", gin.H{"username": username, "password": "secret-pw"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login loginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestStatusAndProbes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/status", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), "AI Literacy Backend is running!")
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, rec.Header().Get(handlers.HeaderRequestID))

	for _, path := range []string{"/health", "/ready", "/live"} {
		rec, _ := ts.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec, env = ts.do(t, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, handlers.CodeNotFound, env.Error.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(t, http.MethodPost, "/api/register", gin.H{"username": "ada", "password": "secret-pw"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, "/api/register", gin.H{"username": "ada", "password": "secret-pw"}, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, handlers.CodeConflict, env.Error.Code)
	})

	t.Run("short password is a validation error", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, "/api/register", gin.H{"username": "bob", "password": "x"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, handlers.CodeValidation, env.Error.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, "/api/register", gin.H{"username": "bob"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, handlers.CodeBadRequest, env.Error.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, "/api/login", gin.H{"username": "ada", "password": "wrong-pw"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "invalid username or password", env.Error.Message)
	})

	t.Run("login returns token, stats and sets the cookie", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, "/api/login", gin.H{"username": "ada", "password": "secret-pw"}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var login loginResponse
		require.NoError(t, json.Unmarshal(env.Data, &login))
		assert.NotEmpty(t, login.Token)
		assert.Equal(t, "ada", login.User.Username)
		assert.Equal(t, 1, login.User.Level)
		assert.Equal(t, 0, login.Progress.LessonsCompleted)
		assert.False(t, login.Progress.CertificationEarned)

		var found bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == "literacy_session" {
				found = true
				assert.True(t, c.HttpOnly)
				assert.Equal(t, login.Token, c.Value)
			}
		}
		assert.True(t, found)
	})
}

func TestSessionCookieFlag(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.features.DisableFeature(config.FeatureSessionCookie))
	ts.signup(t, "ada")

	rec, _ := ts.do(t, http.MethodPost, "/api/login", gin.H{"username": "ada", "password": "secret-pw"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/progress", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "authentication required", env.Error.Message)

	rec, _ = ts.do(t, http.MethodGet, "/api/progress", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := ts.signup(t, "ada")

	t.Run("cookie is accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: "literacy_session", Value: token})
		rec := httptest.NewRecorder()
		ts.srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		rec, _ := ts.do(t, http.MethodPost, "/api/logout", nil, token)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, env := ts.do(t, http.MethodGet, "/api/me", nil, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, shared.ErrTokenRevoked.Message, env.Error.Message)
	})
}

func TestAuthentication_FailsClosedWhenRevocationsUnavailable(t *testing.T) {
	ts := newTestServer(t, failingRevocations{})
	token := ts.signup(t, "ada")

	rec, env := ts.do(t, http.MethodGet, "/api/me", nil, token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, handlers.CodeUnavailable, env.Error.Code)
}

func TestProgressFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.signup(t, "ada")

	rec, env := ts.do(t, http.MethodGet, "/api/progress", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var initial query.ProgressDTO
	require.NoError(t, json.Unmarshal(env.Data, &initial))
	assert.Equal(t, []int{}, initial.CompletedLessons)
	assert.Equal(t, 0, initial.TotalLessons)
	assert.Equal(t, 4, initial.RequiredLessons)
	assert.False(t, initial.CertificationEarned)
	assert.Nil(t, initial.CertificationDate)

	var last updateProgressResponse
	for id := 1; id <= 4; id++ {
		rec, env := ts.do(t, http.MethodPost, "/api/update-progress", gin.H{"lesson_id": id, "score": 90}, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = updateProgressResponse{}
		require.NoError(t, json.Unmarshal(env.Data, &last))
		assert.Equal(t, id, last.LessonID)
		assert.True(t, last.NewLesson)
		require.NotNil(t, last.XP)
		assert.Equal(t, 10, last.XP.Gained)
	}
	assert.True(t, last.JustCertified)
	assert.True(t, last.CertificationEarned)
	assert.Equal(t, 4, last.TotalLessons)
	assert.Equal(t, 100, last.ProgressPercentage)
	assert.InDelta(t, 360.0, last.TotalScore, 1e-9)

	t.Run("resubmission does not certify again", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, "/api/update-progress", gin.H{"lesson_id": 2, "score": 50}, token)
		require.Equal(t, http.StatusOK, rec.Code)
		var again updateProgressResponse
		require.NoError(t, json.Unmarshal(env.Data, &again))
		assert.False(t, again.NewLesson)
		assert.False(t, again.JustCertified)
		assert.True(t, again.CertificationEarned)
		assert.Equal(t, 4, again.TotalLessons)
	})

	t.Run("invalid submissions", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPost, "/api/update-progress", gin.H{"lesson_id": -1, "score": 90}, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, handlers.CodeValidation, env.Error.Code)

		rec, env = ts.do(t, http.MethodPost, "/api/update-progress", gin.H{"lesson_id": 1}, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, handlers.CodeBadRequest, env.Error.Code)
	})
}

func TestTopicProgressAndDashboard(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.signup(t, "ada")

	topic, err := ts.store.Catalog().GetTopicBySlug(context.Background(), "context-is-key")
	require.NoError(t, err)

	rec, env := ts.do(t, http.MethodPost, "/api/topic-progress", gin.H{"topic_id": topic.ID.Int64(), "score": 90}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res topicProgressResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1, res.PreviousDifficulty)
	assert.Equal(t, 2, res.CurrentDifficulty)
	assert.InDelta(t, 90.0, res.AverageScore, 1e-9)
	assert.Equal(t, 1, res.LessonsCompleted)

	rec, _ = ts.do(t, http.MethodPost, "/api/topic-progress", gin.H{"topic_id": 999, "score": 90}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/api/dashboard", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash query.DashboardDTO
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	require.Len(t, dash.Progress, 2)
	assert.Equal(t, 10, dash.UserStats.TotalXP)
	assert.False(t, dash.ReadyForCertification)
}

func TestCatalogAndGenerateLesson(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/topics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var topics []query.TopicDTO
	require.NoError(t, json.Unmarshal(env.Data, &topics))
	assert.Len(t, topics, 2)

	rec, _ = ts.do(t, http.MethodGet, "/api/topics/context-is-key", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.do(t, http.MethodGet, "/api/topics/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/api/lessons", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var lessons []query.LessonDTO
	require.NoError(t, json.Unmarshal(env.Data, &lessons))
	assert.Len(t, lessons, 4)

	token := ts.signup(t, "ada")

	rec, env = ts.do(t, http.MethodPost, "/api/generate-lesson", gin.H{"topic": "ai-ethics"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lesson generatedLessonResponse
	require.NoError(t, json.Unmarshal(env.Data, &lesson))
	assert.Equal(t, "Adding Context", lesson.Title)
	assert.Equal(t, "context-is-key", lesson.Topic)
	assert.Equal(t, 1, lesson.Difficulty)

	require.NoError(t, ts.features.DisableFeature(config.FeatureLessonPreparation))
	rec, env = ts.do(t, http.MethodPost, "/api/generate-lesson", gin.H{}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, handlers.CodeDisabled, env.Error.Code)
}

func TestLessonOrderFlag(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.features.EnableFeature(config.FeatureEnforceLessonOrder))
	token := ts.signup(t, "ada")

	rec, env := ts.do(t, http.MethodPost, "/api/update-progress", gin.H{"lesson_id": 3, "score": 90}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.ErrLessonLocked.Message, env.Error.Message)

	rec, _ = ts.do(t, http.MethodPost, "/api/update-progress", gin.H{"lesson_id": 1, "score": 90}, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	handlers.RespondError(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Len(t, c.Errors, 1)
}
