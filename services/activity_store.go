package services

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"taskboard-api/models"
)

// sqlRunner is satisfied by *sql.DB, *sql.Tx and gorm's ConnPool, so the
// activity store can run inside a gorm transaction.
type sqlRunner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ActivityStore is the persistence behind ActivityLog.
type ActivityStore interface {
	Insert(ctx context.Context, rec *models.ActivityRecord) error
	Exists(ctx context.Context, actorID *uint, entityType string, entityID uint, action string) (bool, error)
	ListByEntity(ctx context.Context, entityType string, entityID uint) ([]models.ActivityRecord, error)
}

var activityColumns = []string{
	"activity_id",
	"entity_type",
	"entity_id",
	"action",
	"actor_id",
	"payload",
	"create_at",
}

// SQLActivityStore builds its statements with squirrel against the activity_records table.
type SQLActivityStore struct {
	runner sqlRunner
}

func NewSQLActivityStore(runner sqlRunner) *SQLActivityStore {
	return &SQLActivityStore{runner: runner}
}

func (s *SQLActivityStore) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// Insert appends a record, scanning the generated id into rec.
func (s *SQLActivityStore) Insert(ctx context.Context, rec *models.ActivityRecord) error {
	wrapMsg := "unable to append activity record"

	statement, args, err := s.builder().
		Insert("activity_records").
		Columns("entity_type", "entity_id", "action", "actor_id", "payload", "create_at").
		Values(rec.EntityType, rec.EntityID, rec.Action, rec.ActorID, rec.Payload, rec.CreateAt).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	result, err := s.runner.ExecContext(ctx, statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	rec.ActivityID = uint(id)

	return nil
}

// Exists reports whether a record with exactly this actor, entity and action is present.
func (s *SQLActivityStore) Exists(ctx context.Context, actorID *uint, entityType string, entityID uint, action string) (bool, error) {
	wrapMsg := fmt.Sprintf("unable to check activity `%s` on %s %d", action, entityType, entityID)

	// sq.Eq renders a nil actor as "actor_id IS NULL".
	var actor interface{}
	if actorID != nil {
		actor = *actorID
	}

	statement, args, err := s.builder().
		Select("1").
		From("activity_records").
		Where(sq.Eq{
			"actor_id":    actor,
			"entity_type": entityType,
			"entity_id":   entityID,
			"action":      action,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, wrapMsg)
	}

	var one int
	err = s.runner.QueryRowContext(ctx, statement, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, wrapMsg)
	}
	return true, nil
}

// ListByEntity returns the records of one entity, newest first.
func (s *SQLActivityStore) ListByEntity(ctx context.Context, entityType string, entityID uint) ([]models.ActivityRecord, error) {
	wrapMsg := fmt.Sprintf("unable to list activity for %s %d", entityType, entityID)

	statement, args, err := s.builder().
		Select(activityColumns...).
		From("activity_records").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("create_at DESC", "activity_id DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	rows, err := s.runner.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	records := make([]models.ActivityRecord, 0)
	for rows.Next() {
		var (
			rec     models.ActivityRecord
			actorID sql.NullInt64
			payload sql.NullString
		)
		if err := rows.Scan(&rec.ActivityID, &rec.EntityType, &rec.EntityID, &rec.Action, &actorID, &payload, &rec.CreateAt); err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		if actorID.Valid {
			rec.ActorID = uintPtr(uint(actorID.Int64))
		}
		rec.Payload = payload.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return records, nil
}
