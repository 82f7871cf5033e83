package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	ErrEventNotFound      = errors.New("calendar event not found")
	ErrEventAlreadyExists = errors.New("calendar event already exists")
)

const uniqueViolation = "23505"

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	StoreEvent(ctx context.Context, userId int, event Event) (string, error)
	// UpsertEvent inserts the event or overwrites the user's event with the same UID.
	UpsertEvent(ctx context.Context, userId int, event Event) error
	GetEvent(ctx context.Context, userId int, uid string) (Event, error)
	// GetEvents returns events overlapping [from, to), ordered by start time.
	GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error)
	UpdateEvent(ctx context.Context, userId int, event Event) error
	DeleteEvent(ctx context.Context, userId int, uid string) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *RepositoryImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// No-op when the transaction was already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&RepositoryImpl{db: r.db, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) StoreEvent(ctx context.Context, userId int, event Event) (string, error) {
	query := `INSERT INTO calendar_event (uid, user_id, summary, location, color, start_time, end_time)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	uid := event.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	_, err := r.getQueryer().Exec(ctx, query, uid, userId, event.Summary, event.Location, event.Color, event.StartTime, event.EndTime)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return "", fmt.Errorf("%w: %s", ErrEventAlreadyExists, uid)
	}
	if err != nil {
		err := fmt.Errorf("could not store calendar event: %w", err)
		log.Error(err)
		return "", err
	}
	return uid, nil
}

func (r *RepositoryImpl) UpsertEvent(ctx context.Context, userId int, event Event) error {
	query := `INSERT INTO calendar_event (uid, user_id, summary, location, color, start_time, end_time)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (user_id, uid) DO UPDATE
			  SET summary = EXCLUDED.summary,
			      location = EXCLUDED.location,
			      color = EXCLUDED.color,
			      start_time = EXCLUDED.start_time,
			      end_time = EXCLUDED.end_time`

	_, err := r.getQueryer().Exec(ctx, query, event.UID, userId, event.Summary, event.Location, event.Color, event.StartTime, event.EndTime)
	if err != nil {
		err := fmt.Errorf("could not upsert calendar event %s: %w", event.UID, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, userId int, uid string) (Event, error) {
	query := `SELECT uid, summary, location, color, start_time, end_time
			  FROM calendar_event
			  WHERE user_id = $1 AND uid = $2`

	event, err := scanEvent(r.getQueryer().QueryRow(ctx, query, userId, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	} else if err != nil {
		err := fmt.Errorf("could not query calendar event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return event, nil
}

func (r *RepositoryImpl) GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error) {
	query := `SELECT uid, summary, location, color, start_time, end_time
			  FROM calendar_event
			  WHERE user_id = $1
			    AND start_time < $2
			    AND end_time > $3
			  ORDER BY start_time, uid`

	rows, err := r.getQueryer().Query(ctx, query, userId, to, from)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 10)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read calendar events: %w", err)
	}
	return events, nil
}

func (r *RepositoryImpl) UpdateEvent(ctx context.Context, userId int, event Event) error {
	query := `UPDATE calendar_event
			  SET summary = $1, location = $2, color = $3, start_time = $4, end_time = $5
			  WHERE uid = $6 AND user_id = $7`

	result, err := r.getQueryer().Exec(ctx, query, event.Summary, event.Location, event.Color, event.StartTime, event.EndTime, event.UID, userId)
	if err != nil {
		err := fmt.Errorf("could not update calendar event: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, userId int, uid string) error {
	query := `DELETE FROM calendar_event WHERE uid = $1 AND user_id = $2`

	result, err := r.getQueryer().Exec(ctx, query, uid, userId)
	if err != nil {
		err := fmt.Errorf("could not delete calendar event: %w", err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var event Event
	err := row.Scan(
		&event.UID,
		&event.Summary,
		&event.Location,
		&event.Color,
		&event.StartTime,
		&event.EndTime,
	)
	return event, err
}
