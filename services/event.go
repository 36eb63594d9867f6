package services

import "taskboard-api/models"

// Subject is the entity an event is about. It names the activity-log entity
// and supplies the notification reference id.
type Subject interface {
	EntityType() string
	EntityID() uint
}

type TaskSubject struct {
	TaskID uint
}

func (s TaskSubject) EntityType() string { return models.EntityTask }
func (s TaskSubject) EntityID() uint     { return s.TaskID }

type ProjectSubject struct {
	ProjectID uint
}

func (s ProjectSubject) EntityType() string { return models.EntityProject }
func (s ProjectSubject) EntityID() uint     { return s.ProjectID }

type JoinRequestSubject struct {
	ProjectID   uint
	RequestID   uint
	RequesterID uint
}

func (s JoinRequestSubject) EntityType() string { return models.EntityJoinRequest }
func (s JoinRequestSubject) EntityID() uint     { return s.RequestID }

type ReportSubject struct {
	ReportID       uint
	ReportedUserID uint
}

func (s ReportSubject) EntityType() string { return models.EntityUserReport }
func (s ReportSubject) EntityID() uint     { return s.ReportID }

type PaymentSubject struct {
	OrderID uint
	PayerID uint
}

func (s PaymentSubject) EntityType() string { return models.EntityPaymentOrder }
func (s PaymentSubject) EntityID() uint     { return s.OrderID }

// ActivityEntry asks Publish to append one ActivityRecord for the event.
// With Dedup set, an existing (actor, subject, action) record turns the whole
// event into a no-op.
type ActivityEntry struct {
	Action  string
	Payload map[string]any
	Dedup   bool
}

// Event is a single domain occurrence to be fanned out.
type Event struct {
	Kind     models.EventKind
	Subject  Subject
	ActorID  *uint
	Mentions []Mention
	Title    string
	Message  string
	Link     string
	Activity *ActivityEntry
}

func uintPtr(v uint) *uint {
	return &v
}
