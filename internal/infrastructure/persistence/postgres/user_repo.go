package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
	"github.com/ai-literacy/literacy-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `id, username, email, first_name, password_hash, created_at, updated_at`

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		u.ID.String(),
		u.Username.String(),
		u.Email,
		u.FirstName,
		u.PasswordHash,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id shared.UserID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.conn.QueryRow(ctx, query, id.String()))
}

// GetByUsername returns a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username shared.Username) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.conn.QueryRow(ctx, query, username.String()))
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u        user.User
		id       string
		username string
	)

	err := row.Scan(&id, &username, &u.Email, &u.FirstName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.ID = shared.UserID(id)
	u.Username = shared.Username(username)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements user.ProfileRepository for PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

const profileColumns = `user_id, total_xp, level, current_streak, best_streak, last_activity_date, created_at, updated_at`

// Create inserts the default profile of a new user.
func (r *ProfileRepository) Create(ctx context.Context, p *user.Profile) error {
	query := `
		INSERT INTO user_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query,
		p.UserID.String(),
		p.TotalXP.Int(),
		p.Level.Int(),
		p.CurrentStreak,
		p.BestStreak,
		nullableDate(p.LastActivityDate),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByUserID returns the profile of a user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID shared.UserID) (*user.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = $1`
	return scanProfile(r.conn.QueryRow(ctx, query, userID.String()))
}

// Update locks the profile row for the rest of the transaction, applies fn
// and writes the result back.
func (r *ProfileRepository) Update(ctx context.Context, userID shared.UserID, fn func(p *user.Profile) error) (*user.Profile, error) {
	var out *user.Profile

	err := r.conn.WithinTx(ctx, func(ctx context.Context) error {
		query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = $1 FOR UPDATE`
		p, err := scanProfile(r.conn.QueryRow(ctx, query, userID.String()))
		if err != nil {
			return err
		}

		if err := fn(p); err != nil {
			return err
		}

		update := `
			UPDATE user_profiles SET
				total_xp = $1,
				level = $2,
				current_streak = $3,
				best_streak = $4,
				last_activity_date = $5,
				updated_at = $6
			WHERE user_id = $7
		`
		_, err = r.conn.Exec(ctx, update,
			p.TotalXP.Int(),
			p.Level.Int(),
			p.CurrentStreak,
			p.BestStreak,
			nullableDate(p.LastActivityDate),
			p.UpdatedAt,
			p.UserID.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}

		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanProfile(row pgx.Row) (*user.Profile, error) {
	var (
		p            user.Profile
		userID       string
		totalXP      int
		level        int
		lastActivity *time.Time
	)

	err := row.Scan(&userID, &totalXP, &level, &p.CurrentStreak, &p.BestStreak,
		&lastActivity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.UserID = shared.UserID(userID)
	p.TotalXP = shared.XP(totalXP)
	p.Level = shared.Level(level)
	if lastActivity != nil {
		p.LastActivityDate = lastActivity.UTC()
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := t.UTC()
	return &d
}
