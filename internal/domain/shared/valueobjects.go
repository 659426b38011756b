package shared

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier (UUID format).
type UserID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Credentials
// ═══════════════════════════════════════════════════════════════════════════

const (
	MinUsernameLength = 3
	MaxUsernameLength = 150
	MinPasswordLength = 6
	MaxPasswordLength = 72 // bcrypt input limit
)

// Username is a login name. Case is preserved, surrounding whitespace is not.
type Username string

// String returns the string representation.
func (u Username) String() string {
	return string(u)
}

// NewUsername validates a raw username.
func NewUsername(raw string) (Username, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", NewDomainError("user", "Validate", ErrEmptyValue, "username is required")
	}
	n := utf8.RuneCountInString(name)
	if n < MinUsernameLength {
		return "", NewDomainError("user", "Validate", ErrValueOutOfRange, "username must be at least 3 characters")
	}
	if n > MaxUsernameLength {
		return "", NewDomainError("user", "Validate", ErrValueOutOfRange, "username is too long")
	}
	return Username(name), nil
}

// ValidatePassword checks a plaintext password before hashing.
func ValidatePassword(password string) error {
	if password == "" {
		return NewDomainError("user", "Validate", ErrEmptyValue, "password is required")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return NewDomainError("user", "Validate", ErrValueOutOfRange, "password must be at least 6 characters")
	}
	if len(password) > MaxPasswordLength {
		return NewDomainError("user", "Validate", ErrValueOutOfRange, "password is too long")
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a user.
type XP int

const (
	// XP boundaries
	MinXP XP = 0
	MaxXP XP = 1000000 // 1 million XP cap
)

// IsValid checks if the XP value is within valid range.
func (x XP) IsValid() bool {
	return x >= MinXP && x <= MaxXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result, clamped to [MinXP, MaxXP].
func (x XP) Add(amount int) XP {
	result := XP(int(x) + amount)
	if result > MaxXP {
		return MaxXP
	}
	if result < MinXP {
		return MinXP
	}
	return result
}

// Level calculates the level based on XP.
// Level 1 starts at 0 XP and going from level L to L+1 costs 100*L XP.
func (x XP) Level() Level {
	if x <= 0 {
		return MinLevel
	}
	level := 1
	requiredXP := 100
	totalRequired := 0
	for totalRequired+requiredXP <= int(x) {
		totalRequired += requiredXP
		level++
		requiredXP = 100 * level
	}
	if Level(level) > MaxLevel {
		return MaxLevel
	}
	return Level(level)
}

// ProgressToNextLevel returns percentage progress to next level (0-100).
func (x XP) ProgressToNextLevel() int {
	currentLevel := x.Level()
	if currentLevel >= MaxLevel {
		return 100
	}
	currentLevelXP := currentLevel.RequiredXP()
	nextLevelXP := (currentLevel + 1).RequiredXP()

	xpInCurrentLevel := int(x) - currentLevelXP
	xpNeededForLevel := nextLevelXP - currentLevelXP

	if xpNeededForLevel == 0 {
		return 100
	}

	return (xpInCurrentLevel * 100) / xpNeededForLevel
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a user's level.
type Level int

const (
	MinLevel Level = 1
	MaxLevel Level = 100
)

// IsValid checks if the level is within valid range.
func (l Level) IsValid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RequiredXP returns the total XP required to reach this level.
func (l Level) RequiredXP() int {
	if l <= 1 {
		return 0
	}
	total := 0
	for i := Level(1); i < l; i++ {
		total += 100 * int(i)
	}
	return total
}

// Title returns a human-readable title for the level.
func (l Level) Title() string {
	switch {
	case l < 3:
		return "Curious"
	case l < 5:
		return "Prompt Apprentice"
	case l < 10:
		return "AI Practitioner"
	case l < 20:
		return "Critical Thinker"
	default:
		return "AI Literate"
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Score is a caller-supplied lesson score. The nominal range is 0-100 but
// out-of-range values, negative ones included, are accepted as-is.
type Score float64

// Float64 returns the underlying value.
func (s Score) Float64() float64 {
	return float64(s)
}

// NewScore rejects only values that cannot be stored (NaN, ±Inf).
func NewScore(v float64) (Score, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidScore
	}
	return Score(v), nil
}

// XPForScore is the XP awarded for one completed lesson: max(10, floor(score/10)).
func XPForScore(s Score) int {
	f := math.Floor(float64(s) / 10)
	if f > float64(MaxXP) {
		return int(MaxXP)
	}
	if f < 10 {
		return 10
	}
	return int(f)
}

// ═══════════════════════════════════════════════════════════════════════════
// Difficulty Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Difficulty is the adaptive difficulty of a topic for one user.
type Difficulty int

const (
	MinDifficulty Difficulty = 1
	MaxDifficulty Difficulty = 5
)

// IsValid checks the [1,5] bound.
func (d Difficulty) IsValid() bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}

// Int returns the underlying int value.
func (d Difficulty) Int() int {
	return int(d)
}

// Clamp forces the value into [MinDifficulty, MaxDifficulty].
func (d Difficulty) Clamp() Difficulty {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// Harder returns the next difficulty, capped at MaxDifficulty.
func (d Difficulty) Harder() Difficulty {
	return (d + 1).Clamp()
}

// Easier returns the previous difficulty, floored at MinDifficulty.
func (d Difficulty) Easier() Difficulty {
	return (d - 1).Clamp()
}
