package models

import "time"

type ReportAction string

const (
	ReportActionBan     ReportAction = "ban"
	ReportActionWarning ReportAction = "warning"
)

const (
	ReportStatusOpen     = "OPEN"
	ReportStatusResolved = "RESOLVED"
)

type UserReport struct {
	ReportID       uint       `gorm:"primaryKey;column:report_id" json:"report_id"`
	ReportedUserID uint       `gorm:"column:reported_user_id" json:"reported_user_id"`
	ReporterID     uint       `gorm:"column:reporter_id" json:"reporter_id"`
	Reason         string     `gorm:"column:reason" json:"reason"`
	Status         string     `gorm:"column:status" json:"status"`
	ActionTaken    *string    `gorm:"column:action_taken" json:"action_taken,omitempty"`
	ResolvedBy     *uint      `gorm:"column:resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

func (UserReport) TableName() string { return "user_reports" }

const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
)

type PaymentOrder struct {
	OrderID  uint       `gorm:"primaryKey;column:order_id" json:"order_id"`
	UserID   uint       `gorm:"column:user_id" json:"user_id"`
	Amount   string     `gorm:"column:amount" json:"amount"`
	Currency string     `gorm:"column:currency" json:"currency"`
	Status   string     `gorm:"column:status" json:"status"`
	PaidAt   *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`
}

func (PaymentOrder) TableName() string { return "payment_orders" }
