package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard-api/config"
	"taskboard-api/models"
)

// EventPublisher is what business services need from the dispatcher.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) (DispatchReport, error)
}

// TxScope holds stores and a publisher bound to one transaction.
type TxScope struct {
	Reports  ReportStore
	Accounts AccountStore
	Orders   PaymentOrderStore
	Events   EventPublisher
}

// Transactor runs fn in a transaction; a returned error rolls everything back,
// including notifications and activity written through scope.Events. Activity
// is mirrored to the broker only after commit.
type Transactor interface {
	InTx(ctx context.Context, fn func(scope TxScope) error) error
}

type GormTransactor struct {
	db         *gorm.DB
	dispatcher *NotificationDispatcher
}

func NewGormTransactor(db *gorm.DB, dispatcher *NotificationDispatcher) *GormTransactor {
	if db == nil {
		db = config.DB
	}
	return &GormTransactor{db: db, dispatcher: dispatcher}
}

func (t *GormTransactor) InTx(ctx context.Context, fn func(scope TxScope) error) error {
	var events *NotificationDispatcher
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events = t.dispatcher.WithTx(tx)
		return fn(TxScope{
			Reports:  NewGormReportStore(tx),
			Accounts: NewGormDirectory(tx),
			Orders:   NewGormPaymentOrderStore(tx),
			Events:   events,
		})
	})
	if err != nil {
		return err
	}
	events.flushActivity(ctx)
	return nil
}

// ReportStore reads and resolves user_reports rows.
type ReportStore interface {
	FindForUpdate(ctx context.Context, reportID uint) (*models.UserReport, error)
	Resolve(ctx context.Context, reportID uint, action models.ReportAction, adminID uint, at time.Time) error
}

type GormReportStore struct {
	db *gorm.DB
}

func NewGormReportStore(db *gorm.DB) *GormReportStore {
	if db == nil {
		db = config.DB
	}
	return &GormReportStore{db: db}
}

func (s *GormReportStore) FindForUpdate(ctx context.Context, reportID uint) (*models.UserReport, error) {
	var r models.UserReport
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "report_id = ?", reportID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("report %d: %w", reportID, ErrReportNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *GormReportStore) Resolve(ctx context.Context, reportID uint, action models.ReportAction, adminID uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.UserReport{}).
		Where("report_id = ?", reportID).
		Updates(map[string]interface{}{
			"status":       models.ReportStatusResolved,
			"action_taken": string(action),
			"resolved_by":  adminID,
			"resolved_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("report %d: %w", reportID, ErrReportNotFound)
	}
	return nil
}

// PaymentOrderStore reads and settles payment_orders rows.
type PaymentOrderStore interface {
	FindByID(ctx context.Context, orderID uint) (*models.PaymentOrder, error)
	MarkPaid(ctx context.Context, orderID uint, at time.Time) error
}

type GormPaymentOrderStore struct {
	db *gorm.DB
}

func NewGormPaymentOrderStore(db *gorm.DB) *GormPaymentOrderStore {
	if db == nil {
		db = config.DB
	}
	return &GormPaymentOrderStore{db: db}
}

func (s *GormPaymentOrderStore) FindByID(ctx context.Context, orderID uint) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrPaymentOrderNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *GormPaymentOrderStore) MarkPaid(ctx context.Context, orderID uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("order_id = ? AND status <> ?", orderID, models.PaymentPaid).
		Updates(map[string]interface{}{
			"status":  models.PaymentPaid,
			"paid_at": at,
		}).Error
}
