package models

// EventKind is the closed set of domain events that produce notifications.
type EventKind string

const (
	KindTaskAssigned        EventKind = "TASK_ASSIGNED"
	KindTaskCommented       EventKind = "TASK_COMMENTED"
	KindTaskDueSoon         EventKind = "TASK_DUE_SOON"
	KindTaskFollowed        EventKind = "TASK_FOLLOWED"
	KindProjectCreated      EventKind = "PROJECT_CREATED"
	KindMemberAdded         EventKind = "MEMBER_ADDED"
	KindProjectArchived     EventKind = "PROJECT_ARCHIVED"
	KindJoinRequestReceived EventKind = "JOIN_REQUEST_RECEIVED"
	KindJoinRequestApproved EventKind = "JOIN_REQUEST_APPROVED"
	KindJoinRequestRejected EventKind = "JOIN_REQUEST_REJECTED"
	KindBan                 EventKind = "BAN"
	KindWarning             EventKind = "WARNING"
	KindPaymentSuccess      EventKind = "PAYMENT_SUCCESS"
)

// AllEventKinds lists every kind, in declaration order.
var AllEventKinds = []EventKind{
	KindTaskAssigned,
	KindTaskCommented,
	KindTaskDueSoon,
	KindTaskFollowed,
	KindProjectCreated,
	KindMemberAdded,
	KindProjectArchived,
	KindJoinRequestReceived,
	KindJoinRequestApproved,
	KindJoinRequestRejected,
	KindBan,
	KindWarning,
	KindPaymentSuccess,
}

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Valid reports whether k is one of the declared kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindTaskAssigned, KindTaskCommented, KindTaskDueSoon, KindTaskFollowed,
		KindProjectCreated, KindMemberAdded, KindProjectArchived,
		KindJoinRequestReceived, KindJoinRequestApproved, KindJoinRequestRejected,
		KindBan, KindWarning, KindPaymentSuccess:
		return true
	}
	return false
}

// Priority is the static priority of the kind. Unknown kinds are LOW.
func (k EventKind) Priority() Priority {
	switch k {
	case KindBan, KindWarning, KindPaymentSuccess, KindJoinRequestReceived:
		return PriorityHigh
	case KindMemberAdded, KindProjectCreated, KindProjectArchived,
		KindTaskAssigned, KindTaskDueSoon,
		KindJoinRequestApproved, KindJoinRequestRejected:
		return PriorityMedium
	case KindTaskCommented, KindTaskFollowed:
		return PriorityLow
	}
	return PriorityLow
}

// Icon is the icon name the web client renders next to the notification.
func (k EventKind) Icon() string {
	switch k {
	case KindTaskAssigned:
		return "user-check"
	case KindTaskCommented:
		return "message-circle"
	case KindTaskDueSoon:
		return "clock"
	case KindTaskFollowed:
		return "eye"
	case KindProjectCreated:
		return "folder-plus"
	case KindMemberAdded:
		return "user-plus"
	case KindProjectArchived:
		return "archive"
	case KindJoinRequestReceived:
		return "log-in"
	case KindJoinRequestApproved:
		return "check-circle"
	case KindJoinRequestRejected:
		return "x-circle"
	case KindBan:
		return "slash"
	case KindWarning:
		return "alert-triangle"
	case KindPaymentSuccess:
		return "credit-card"
	}
	return "bell"
}
