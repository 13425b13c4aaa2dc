package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/logger"
	"github.com/m3rciful/formbot/core/state"
)

type profileRow struct {
	UserID        int64     `db:"user_id"`
	Name          string    `db:"name"`
	Age           int       `db:"age"`
	Gender        string    `db:"gender"`
	PhotoID       string    `db:"photo_id"`
	PhotoUniqueID string    `db:"photo_unique_id"`
	Education     string    `db:"education"`
	WishNews      bool      `db:"wish_news"`
	CompletedAt   time.Time `db:"completed_at"`
}

func rowFromProfile(p form.Profile) profileRow {
	return profileRow{
		UserID:        int64(p.UserID),
		Name:          p.Name,
		Age:           p.Age,
		Gender:        string(p.Gender),
		PhotoID:       p.Photo.ID,
		PhotoUniqueID: p.Photo.UniqueID,
		Education:     string(p.Education),
		WishNews:      p.WishNews,
		CompletedAt:   p.CompletedAt.UTC(),
	}
}

func (r profileRow) profile() form.Profile {
	return form.Profile{
		UserID:      form.UserID(r.UserID),
		Name:        r.Name,
		Age:         r.Age,
		Gender:      form.Gender(r.Gender),
		Photo:       form.PhotoRef{ID: r.PhotoID, UniqueID: r.PhotoUniqueID},
		Education:   form.Education(r.Education),
		WishNews:    r.WishNews,
		CompletedAt: r.CompletedAt.UTC(),
	}
}

// Profiles is a PostgreSQL-backed state.ProfileRepository.
type Profiles struct {
	db *sqlx.DB
}

// NewProfiles wraps an open connection.
func NewProfiles(db *sqlx.DB) *Profiles {
	return &Profiles{db: db}
}

var _ state.ProfileRepository = (*Profiles)(nil)

const upsertProfile = `
INSERT INTO profiles (user_id, name, age, gender, photo_id, photo_unique_id, education, wish_news, completed_at)
VALUES (:user_id, :name, :age, :gender, :photo_id, :photo_unique_id, :education, :wish_news, :completed_at)
ON CONFLICT (user_id) DO UPDATE SET
    name = EXCLUDED.name,
    age = EXCLUDED.age,
    gender = EXCLUDED.gender,
    photo_id = EXCLUDED.photo_id,
    photo_unique_id = EXCLUDED.photo_unique_id,
    education = EXCLUDED.education,
    wish_news = EXCLUDED.wish_news,
    completed_at = EXCLUDED.completed_at,
    updated_at = now()`

// Save inserts the profile or replaces the user's previous one.
func (r *Profiles) Save(ctx context.Context, p form.Profile) error {
	start := time.Now()
	if _, err := r.db.NamedExecContext(ctx, upsertProfile, rowFromProfile(p)); err != nil {
		logger.Error(ctx, component, "profile.save",
			slog.Int64("user_id", int64(p.UserID)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("save profile %d: %w", p.UserID, err)
	}
	logger.Debug(ctx, component, "profile.save",
		slog.Int64("user_id", int64(p.UserID)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

const selectProfile = `
SELECT user_id, name, age, gender, photo_id, photo_unique_id, education, wish_news, completed_at
FROM profiles
WHERE user_id = $1`

// Get loads the user's profile or returns state.ErrProfileNotFound.
func (r *Profiles) Get(ctx context.Context, user form.UserID) (form.Profile, error) {
	var row profileRow
	err := r.db.GetContext(ctx, &row, selectProfile, int64(user))
	if errors.Is(err, sql.ErrNoRows) {
		return form.Profile{}, fmt.Errorf("%w: user %d", state.ErrProfileNotFound, user)
	}
	if err != nil {
		return form.Profile{}, fmt.Errorf("get profile %d: %w", user, err)
	}
	return row.profile(), nil
}

// Count returns the number of stored profiles.
func (r *Profiles) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM profiles`); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}
