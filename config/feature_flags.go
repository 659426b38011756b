package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// FeatureFlags manages feature toggles with gradual per-user rollout.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled

	now func() time.Time
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string
	IsAdmin bool
}

// ForUser returns an evaluation context for a learner.
func ForUser(userID string) *FeatureContext {
	return &FeatureContext{UserID: userID}
}

// Predefined feature flag names.
const (
	// === Progress ===
	FeatureEnforceLessonOrder = "progress.enforce_lesson_order" // Lesson N requires N-1
	FeatureProgressCache      = "progress.cache"                // Redis read-through cache

	// === Lessons ===
	FeatureLessonPreparation = "lessons.preparation" // POST /api/generate-lesson

	// === Auth ===
	FeatureSessionCookie = "auth.session_cookie" // HttpOnly cookie on login
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() (*FeatureFlags, error) {
	ff := NewFeatureFlags()
	if err := ff.loadFromEnvironment(); err != nil {
		return nil, err
	}
	return ff, nil
}

// NewFeatureFlags returns the flags with their default values.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
		now:           time.Now,
	}
	ff.initializeDefaults()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureEnforceLessonOrder] = &Feature{
		Name:           FeatureEnforceLessonOrder,
		Description:    "Reject a lesson completion while the previous lesson is open",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureProgressCache] = &Feature{
		Name:           FeatureProgressCache,
		Description:    "Serve progress reads from Redis when it is configured",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLessonPreparation] = &Feature{
		Name:           FeatureLessonPreparation,
		Description:    "Prepare lessons from content templates",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSessionCookie] = &Feature{
		Name:           FeatureSessionCookie,
		Description:    "Set the access token as an HttpOnly cookie on login",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_PROGRESS_ENFORCE_LESSON_ORDER=true
// Example: FEATURE_PROGRESS_ENFORCE_LESSON_ORDER=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() error {
	var errs []string
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		val := os.Getenv(envKey)
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		p, err := strconv.Atoi(val)
		if err != nil || p < 0 || p > 100 {
			errs = append(errs, fmt.Sprintf("%s: want true, false or 0-100, got %q", envKey, val))
			continue
		}
		feature.Enabled = p > 0
		feature.RolloutPercent = p
	}

	if len(errs) > 0 {
		return &FeatureFlagError{Message: strings.Join(errs, "; ")}
	}
	return nil
}

// featureNameToEnvKey converts feature name to environment variable key.
// "progress.enforce_lesson_order" -> "FEATURE_PROGRESS_ENFORCE_LESSON_ORDER"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	now := ff.now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent >= 100
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))

	bucket := int(h.Sum32() % 100)
	return bucket < percent
}

// SetUserOverride sets a feature override for a specific user.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// SetWindow limits a feature to the [from, until] interval. Nil bounds are open.
func (ff *FeatureFlags) SetWindow(featureName string, from, until *time.Time) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.EnabledFrom = from
	feature.EnabledUntil = until
	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// EnforceLessonOrder reports whether the user must complete lessons in order.
func (ff *FeatureFlags) EnforceLessonOrder(userID shared.UserID) bool {
	return ff.IsEnabled(FeatureEnforceLessonOrder, ForUser(userID.String()))
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
