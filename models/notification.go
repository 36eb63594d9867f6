package models

import "time"

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "UNREAD"
	NotificationRead   NotificationStatus = "READ"
)

// EmailMode records the email decision taken when the notification was created.
type EmailMode string

const (
	EmailNone      EmailMode = "NONE"
	EmailImmediate EmailMode = "IMMEDIATE"
	EmailDigest    EmailMode = "DIGEST"
)

type Notification struct {
	NotificationID uint               `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	RecipientID    uint               `gorm:"column:recipient_id;index" json:"recipient_id"`
	SenderID       *uint              `gorm:"column:sender_id" json:"sender_id,omitempty"`
	Type           EventKind          `gorm:"column:type;size:40" json:"type"`
	ReferenceID    uint               `gorm:"column:reference_id" json:"reference_id"`
	Status         NotificationStatus `gorm:"column:status;size:10" json:"status"`
	Title          string             `gorm:"column:title" json:"title"`
	Message        string             `gorm:"column:message" json:"message"`
	Link           string             `gorm:"column:link" json:"link"`
	Priority       Priority           `gorm:"column:priority;size:10" json:"priority"`
	EmailMode      EmailMode          `gorm:"column:email_mode;size:10" json:"-"`
	Emailed        bool               `gorm:"column:emailed" json:"emailed"`
	CreateAt       time.Time          `gorm:"column:create_at" json:"created_at"`
	ReadAt         *time.Time         `gorm:"column:read_at" json:"read_at,omitempty"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) IsRead() bool { return n.Status == NotificationRead }
