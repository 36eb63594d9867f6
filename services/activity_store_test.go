package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"taskboard-api/models"
)

func TestActivityInsert(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	createdAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO activity_records \\(entity_type,entity_id,action,actor_id,payload,create_at\\)").
		WithArgs(models.EntityTask, 100, "task_assigned", 1, `{"assignee_id":2}`, createdAt).
		WillReturnResult(sqlmock.NewResult(17, 1))

	rec := &models.ActivityRecord{
		EntityType: models.EntityTask,
		EntityID:   100,
		Action:     "task_assigned",
		ActorID:    uintPtr(1),
		Payload:    `{"assignee_id":2}`,
		CreateAt:   createdAt,
	}
	err = NewSQLActivityStore(db).Insert(context.Background(), rec)
	assert.NoError(err, "unexpected error while appending the activity record")
	assert.Equal(uint(17), rec.ActivityID)

	err = mock.ExpectationsWereMet()
	assert.NoError(err, "not all mock expectations were met")
}

func TestActivityInsertWithoutActor(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	mock.ExpectExec("INSERT INTO activity_records").
		WithArgs(models.EntityTask, 100, "task_due_soon", nil, "{}", sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err = NewSQLActivityStore(db).Insert(context.Background(), &models.ActivityRecord{
		EntityType: models.EntityTask,
		EntityID:   100,
		Action:     "task_due_soon",
		Payload:    "{}",
		CreateAt:   time.Now(),
	})
	assert.Error(err)
	assert.Contains(err.Error(), "unable to append activity record")

	err = mock.ExpectationsWereMet()
	assert.NoError(err, "not all mock expectations were met")
}

func TestActivityExists(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()
	ctx := context.Background()
	store := NewSQLActivityStore(db)

	mock.ExpectQuery("SELECT 1 FROM activity_records WHERE action = \\? AND actor_id = \\? AND entity_id = \\? AND entity_type = \\? LIMIT 1").
		WithArgs("payment_success", 5, 9, models.EntityPaymentOrder).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	found, err := store.Exists(ctx, uintPtr(5), models.EntityPaymentOrder, 9, "payment_success")
	assert.NoError(err)
	assert.True(found)

	mock.ExpectQuery("SELECT 1 FROM activity_records WHERE action = \\? AND actor_id IS NULL AND entity_id = \\? AND entity_type = \\? LIMIT 1").
		WithArgs("payment_success", 9, models.EntityPaymentOrder).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	found, err = store.Exists(ctx, nil, models.EntityPaymentOrder, 9, "payment_success")
	assert.NoError(err)
	assert.False(found)

	err = mock.ExpectationsWereMet()
	assert.NoError(err, "not all mock expectations were met")
}

func TestActivityListByEntity(t *testing.T) {
	assert := assert.New(t)

	db, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer db.Close()

	newer := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := sqlmock.NewRows(activityColumns).
		AddRow(4, models.EntityProject, 10, "project_archived", 3, "{}", newer).
		AddRow(2, models.EntityProject, 10, "project_created", nil, nil, older)
	mock.ExpectQuery("SELECT activity_id, entity_type, entity_id, action, actor_id, payload, create_at FROM activity_records WHERE entity_id = \\? AND entity_type = \\? ORDER BY create_at DESC, activity_id DESC").
		WithArgs(10, models.EntityProject).
		WillReturnRows(rows)

	records, err := NewSQLActivityStore(db).ListByEntity(context.Background(), models.EntityProject, 10)
	assert.NoError(err, "unexpected error while listing activity")
	if assert.Len(records, 2) {
		assert.Equal(uint(4), records[0].ActivityID)
		assert.Equal(uint(3), *records[0].ActorID)
		assert.Equal("project_created", records[1].Action)
		assert.Nil(records[1].ActorID)
		assert.Equal("", records[1].Payload)
	}

	err = mock.ExpectationsWereMet()
	assert.NoError(err, "not all mock expectations were met")
}

func TestActivityLogAppendAndQuery(t *testing.T) {
	assert := assert.New(t)

	store := &memActivityStore{}
	pub := &recordingPublisher{}
	log := NewActivityLog(store, pub)
	ctx := context.Background()

	assert.NoError(log.Append(ctx, "", 10, "project_created", nil, nil))
	assert.NoError(log.Append(ctx, models.EntityProject, 0, "project_created", nil, nil))
	assert.NoError(log.Append(ctx, models.EntityProject, 10, "  ", nil, nil))
	assert.Empty(store.records, "incomplete entries must be dropped")

	assert.NoError(log.Append(ctx, models.EntityProject, 10, "project_created", uintPtr(3), nil))
	assert.NoError(log.Append(ctx, models.EntityProject, 10, "member_added", uintPtr(3), map[string]any{"member_id": 5}))
	assert.Len(pub.messages, 2)
	assert.Equal(uint(2), pub.messages[1].ActivityID)

	history, err := log.Query(ctx, models.EntityProject, 10)
	assert.NoError(err)
	if assert.Len(history, 2) {
		assert.Equal("member_added", history[0].Action)
		assert.JSONEq(`{"member_id":5}`, string(history[0].Payload))
		assert.JSONEq(`{}`, string(history[1].Payload))
	}
}

func TestActivityLogPublisherFailureIsIgnored(t *testing.T) {
	store := &memActivityStore{}
	log := NewActivityLog(store, &recordingPublisher{err: errors.New("broker closed")})

	err := log.Append(context.Background(), models.EntityTask, 100, "task_followed", uintPtr(4), nil)
	assert.NoError(t, err)
	assert.Len(t, store.records, 1)
}

func TestActivityLogHoldsMirrorUntilFlush(t *testing.T) {
	assert := assert.New(t)
	store := &memActivityStore{}
	pub := &recordingPublisher{}
	log := NewActivityLog(store, pub)
	ctx := context.Background()

	committed := log.inTx(store)
	assert.NoError(committed.Append(ctx, models.EntityUserReport, 42, "ban", uintPtr(6), nil))
	assert.Len(store.records, 1)
	assert.Empty(pub.messages, "nothing is mirrored before commit")

	committed.flush(ctx)
	assert.Len(pub.messages, 1)
	assert.Equal(uint(1), pub.messages[0].ActivityID)
	committed.flush(ctx)
	assert.Len(pub.messages, 1, "a second flush must not republish")

	rolledBack := log.inTx(store)
	assert.NoError(rolledBack.Append(ctx, models.EntityPaymentOrder, 9, "payment_success", uintPtr(5), nil))
	assert.Len(pub.messages, 1, "an unflushed log publishes nothing")

	assert.NoError(log.Append(ctx, models.EntityTask, 100, "task_followed", uintPtr(4), nil))
	assert.Len(pub.messages, 2, "logs outside a transaction publish right away")
}

func TestActivityRoutingKey(t *testing.T) {
	assert.Equal(t, "activity.paymentorder.payment_success", activityRoutingKey(models.EntityPaymentOrder, "payment_success"))
}

type recordingPublisher struct {
	messages []ActivityMessage
	err      error
}

func (p *recordingPublisher) PublishActivity(_ context.Context, msg ActivityMessage) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}
