package models

import "time"

// ActivityRecord is an append-only fact about an entity. EntityID is a loose
// reference into whichever table EntityType names.
type ActivityRecord struct {
	ActivityID uint      `json:"activity_id"`
	EntityType string    `json:"entity_type"`
	EntityID   uint      `json:"entity_id"`
	Action     string    `json:"action"`
	ActorID    *uint     `json:"actor_id,omitempty"`
	Payload    string    `json:"payload"`
	CreateAt   time.Time `json:"created_at"`
}

// Entity type names used by the activity log.
const (
	EntityTask         = "Task"
	EntityProject      = "Project"
	EntityJoinRequest  = "JoinRequest"
	EntityUserReport   = "UserReport"
	EntityPaymentOrder = "PaymentOrder"
)
