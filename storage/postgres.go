package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/niedraa/typevision-server/domain"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pg *PostgresRepo) Close() {
	pg.pool.Close()
}

func (pg *PostgresRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	user := domain.User{Username: username}

	row := pg.pool.QueryRow(ctx,
		"SELECT id, password_hash, guest, created_at FROM users WHERE username = $1", username)

	err := row.Scan(&user.Id, &user.PasswordHash, &user.Guest, &user.CreatedAt)

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.User{}, domain.ErrUserNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.User{}, err
		default:
			return domain.User{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return user, nil
}

func (pg *PostgresRepo) GetUserById(ctx context.Context, id string) (domain.User, error) {
	user := domain.User{Id: id}

	row := pg.pool.QueryRow(ctx,
		"SELECT username, password_hash, guest, created_at FROM users WHERE id = $1", id)

	err := row.Scan(&user.Username, &user.PasswordHash, &user.Guest, &user.CreatedAt)

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.User{}, domain.ErrUserNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.User{}, err
		default:
			return domain.User{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return user, nil
}

func (pg *PostgresRepo) CreateUser(ctx context.Context, username string, passwordHash string) (string, error) {
	row := pg.pool.QueryRow(ctx,
		"INSERT INTO users(username, password_hash) VALUES($1, $2) RETURNING id", username, passwordHash)

	var id string
	err := row.Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// "23505" is the PostgreSQL error code for unique_violation
			if pgErr.Code == "23505" {
				return "", domain.ErrDuplicateUsername
			}
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		return "", fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return id, nil
}

// CreateGuest inserts a credential-less account. Guest usernames are not
// unique, the display name is suffixed with a discriminator drawn from the id.
func (pg *PostgresRepo) CreateGuest(ctx context.Context, username string) (string, error) {
	row := pg.pool.QueryRow(ctx,
		`INSERT INTO users(username, password_hash, guest)
		 VALUES($1 || '_' || substr(md5(random()::text), 1, 6), '', TRUE)
		 RETURNING id`, username)

	var id string
	err := row.Scan(&id)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return id, nil
}

// GetRandomText picks one race text for the language/difficulty pair.
func (pg *PostgresRepo) GetRandomText(ctx context.Context, language, difficulty string) (domain.RaceText, error) {
	text := domain.RaceText{Language: language, Difficulty: difficulty}

	row := pg.pool.QueryRow(ctx,
		`SELECT id, content FROM race_texts
		 WHERE language = $1 AND difficulty = $2
		 ORDER BY RANDOM() LIMIT 1`, language, difficulty)

	err := row.Scan(&text.Id, &text.Content)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.RaceText{}, domain.ErrTextNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.RaceText{}, err
		default:
			return domain.RaceText{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return text, nil
}

func (pg *PostgresRepo) GetUserStats(ctx context.Context, userId string) (domain.UserStats, error) {
	stats := domain.UserStats{UserId: userId}

	row := pg.pool.QueryRow(ctx,
		`SELECT races_played, races_won, best_wpm, avg_wpm, avg_accuracy, total_keystrokes
		 FROM user_stats WHERE user_id = $1`, userId)

	err := row.Scan(&stats.RacesPlayed, &stats.RacesWon, &stats.BestWPM,
		&stats.AvgWPM, &stats.AvgAccuracy, &stats.TotalKeystrokes)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No races yet, zero-value stats.
			return stats, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.UserStats{}, err
		}
		return domain.UserStats{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return stats, nil
}

// RecordRaceResult folds one finished race into the player's aggregates.
// The running averages are recomputed in SQL so concurrent race finishes
// don't clobber each other.
func (pg *PostgresRepo) RecordRaceResult(ctx context.Context, result domain.RaceResult) (domain.UserStats, error) {
	stats := domain.UserStats{UserId: result.UserId}

	won := 0
	if result.Won {
		won = 1
	}

	row := pg.pool.QueryRow(ctx,
		`INSERT INTO user_stats(user_id, races_played, races_won, best_wpm, avg_wpm, avg_accuracy, total_keystrokes)
		 VALUES($1, 1, $2, $3, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
			races_played = user_stats.races_played + 1,
			races_won = user_stats.races_won + $2,
			best_wpm = GREATEST(user_stats.best_wpm, $3),
			avg_wpm = (user_stats.avg_wpm * user_stats.races_played + $3) / (user_stats.races_played + 1),
			avg_accuracy = (user_stats.avg_accuracy * user_stats.races_played + $4) / (user_stats.races_played + 1),
			total_keystrokes = user_stats.total_keystrokes + $5
		 RETURNING races_played, races_won, best_wpm, avg_wpm, avg_accuracy, total_keystrokes`,
		result.UserId, won, result.WPM, result.Accuracy, result.Keystrokes)

	err := row.Scan(&stats.RacesPlayed, &stats.RacesWon, &stats.BestWPM,
		&stats.AvgWPM, &stats.AvgAccuracy, &stats.TotalKeystrokes)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.UserStats{}, err
		}
		return domain.UserStats{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return stats, nil
}

// UnlockAchievement is idempotent, re-unlocking is a no-op.
func (pg *PostgresRepo) UnlockAchievement(ctx context.Context, userId, code string) error {
	_, err := pg.pool.Exec(ctx,
		`INSERT INTO achievements(user_id, code) VALUES($1, $2)
		 ON CONFLICT (user_id, code) DO NOTHING`, userId, code)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return nil
}

func (pg *PostgresRepo) GetAchievements(ctx context.Context, userId string) ([]domain.Achievement, error) {
	rows, err := pg.pool.Query(ctx,
		"SELECT code, unlocked_at FROM achievements WHERE user_id = $1 ORDER BY unlocked_at", userId)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	defer rows.Close()

	achievements := []domain.Achievement{}
	for rows.Next() {
		var a domain.Achievement
		if err := rows.Scan(&a.Code, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
		achievements = append(achievements, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return achievements, nil
}
