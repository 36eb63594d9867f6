package services

import "errors"

var (
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrNotificationForbidden = errors.New("notification belongs to another user")
	ErrActivityForbidden     = errors.New("activity history is not visible to this user")

	ErrUnknownEventKind = errors.New("unknown event kind")
	ErrSubjectMismatch  = errors.New("event subject does not match event kind")
	ErrSubjectNotFound  = errors.New("event subject not found")
	ErrUserNotFound     = errors.New("user not found")

	ErrInvalidDigestPeriod = errors.New("digest period must be 2, 4 or 6 hours")

	ErrReportNotFound        = errors.New("user report not found")
	ErrReportAlreadyResolved = errors.New("user report already resolved")
	ErrUnsupportedAction     = errors.New("unsupported report action")

	ErrPaymentOrderNotFound = errors.New("payment order not found")
)
