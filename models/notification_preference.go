package models

import "time"

type NotificationPreference struct {
	UserID                uint       `gorm:"primaryKey;autoIncrement:false;column:user_id" json:"user_id"`
	EmailEnabled          bool       `gorm:"column:email_enabled" json:"email_enabled"`
	EmailHighImmediate    bool       `gorm:"column:email_high_immediate" json:"email_high_immediate"`
	EmailDigestEnabled    bool       `gorm:"column:email_digest_enabled" json:"email_digest_enabled"`
	EmailDigestEveryHours int        `gorm:"column:email_digest_every_hours" json:"email_digest_every_hours"`
	LastDigestAt          *time.Time `gorm:"column:last_digest_at" json:"last_digest_at,omitempty"`
}

func (NotificationPreference) TableName() string { return "notification_preferences" }

// Allowed digest periods in hours.
var DigestPeriods = []int{2, 4, 6}

func ValidDigestPeriod(hours int) bool {
	for _, h := range DigestPeriods {
		if h == hours {
			return true
		}
	}
	return false
}

// DigestInterval is EmailDigestEveryHours as a duration, falling back to the
// smallest period when the stored value is out of range.
func (p *NotificationPreference) DigestInterval() time.Duration {
	hours := p.EmailDigestEveryHours
	if !ValidDigestPeriod(hours) {
		hours = DigestPeriods[0]
	}
	return time.Duration(hours) * time.Hour
}
