package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ai-literacy/literacy-hub/config"
	"github.com/ai-literacy/literacy-hub/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("AUTH_BCRYPT_COST", "4")

	cfg, err := config.Load("testdata/does-not-exist.env")
	require.NoError(t, err)
	return cfg
}

func TestBuildApp_MemoryStore(t *testing.T) {
	cfg := testConfig(t)

	a, err := buildApp(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	h := a.server.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lessons", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data []struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 4)
	assert.Equal(t, "Prompt Fundamentals", env.Data[0].Title)

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"username":"grace","password":"secret-pw"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/register", body)
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildApp_BadCatalogFile(t *testing.T) {
	t.Setenv("LEARNING_CATALOG_FILE", "testdata/missing-catalog.yaml")
	cfg := testConfig(t)

	_, err := buildApp(context.Background(), cfg, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed catalog")
}
