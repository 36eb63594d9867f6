package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"taskboard-api/models"
)

// RecipientResolver turns an event's subject and mention targets into the
// concrete set of users that should receive a notification.
type RecipientResolver struct {
	users    UserDirectory
	projects ProjectMembership
	tasks    TaskGraph
}

func NewRecipientResolver(users UserDirectory, projects ProjectMembership, tasks TaskGraph) *RecipientResolver {
	return &RecipientResolver{users: users, projects: projects, tasks: tasks}
}

// recipientSet is an insertion-ordered set of user ids.
type recipientSet struct {
	order []uint
	seen  map[uint]struct{}
}

func newRecipientSet() *recipientSet {
	return &recipientSet{seen: make(map[uint]struct{})}
}

func (s *recipientSet) add(ids ...uint) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.order = append(s.order, id)
	}
}

func (s *recipientSet) remove(id uint) {
	if _, ok := s.seen[id]; !ok {
		return
	}
	delete(s.seen, id)
	out := s.order[:0]
	for _, v := range s.order {
		if v != id {
			out = append(out, v)
		}
	}
	s.order = out
}

func (s *recipientSet) list() []uint {
	return append([]uint(nil), s.order...)
}

// Resolve returns the recipients of ev in a stable order. Audience kinds
// (project, task, join-request received) never include the actor; direct
// kinds address their target even when it is the actor.
func (r *RecipientResolver) Resolve(ctx context.Context, ev Event) ([]uint, error) {
	set := newRecipientSet()
	excludeActor := true

	switch ev.Kind {
	case models.KindProjectCreated, models.KindMemberAdded, models.KindProjectArchived:
		s, ok := ev.Subject.(ProjectSubject)
		if !ok {
			return nil, subjectMismatch(ev)
		}
		members, err := r.projects.MembersOf(ctx, s.ProjectID)
		if err != nil {
			return nil, err
		}
		set.add(members...)

	case models.KindTaskAssigned, models.KindTaskCommented, models.KindTaskDueSoon, models.KindTaskFollowed:
		s, ok := ev.Subject.(TaskSubject)
		if !ok {
			return nil, subjectMismatch(ev)
		}
		if err := r.addTaskAudience(ctx, set, s.TaskID); err != nil {
			return nil, err
		}
		if ev.Kind == models.KindTaskCommented {
			for _, m := range ev.Mentions {
				if err := r.addMention(ctx, set, s.TaskID, m); err != nil {
					return nil, err
				}
			}
		}

	case models.KindJoinRequestReceived:
		s, ok := ev.Subject.(JoinRequestSubject)
		if !ok {
			return nil, subjectMismatch(ev)
		}
		members, err := r.projects.MembersOf(ctx, s.ProjectID)
		if err != nil {
			return nil, err
		}
		for _, id := range members {
			role, err := r.projects.RoleOf(ctx, s.ProjectID, id)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					continue
				}
				return nil, err
			}
			if role.CanReviewJoinRequests() {
				set.add(id)
			}
		}

	case models.KindJoinRequestApproved, models.KindJoinRequestRejected:
		s, ok := ev.Subject.(JoinRequestSubject)
		if !ok {
			return nil, subjectMismatch(ev)
		}
		set.add(s.RequesterID)
		excludeActor = false

	case models.KindBan, models.KindWarning:
		s, ok := ev.Subject.(ReportSubject)
		if !ok {
			return nil, subjectMismatch(ev)
		}
		set.add(s.ReportedUserID)
		excludeActor = false

	case models.KindPaymentSuccess:
		s, ok := ev.Subject.(PaymentSubject)
		if !ok {
			return nil, subjectMismatch(ev)
		}
		set.add(s.PayerID)
		excludeActor = false

	default:
		return nil, fmt.Errorf("%q: %w", ev.Kind, ErrUnknownEventKind)
	}

	if excludeActor && ev.ActorID != nil {
		set.remove(*ev.ActorID)
	}
	return set.list(), nil
}

func subjectMismatch(ev Event) error {
	return fmt.Errorf("%s with subject %T: %w", ev.Kind, ev.Subject, ErrSubjectMismatch)
}

func (r *RecipientResolver) addTaskAudience(ctx context.Context, set *recipientSet, taskID uint) error {
	followers, err := r.tasks.FollowersOf(ctx, taskID)
	if err != nil {
		return err
	}
	set.add(followers...)
	return r.addCard(ctx, set, taskID)
}

func (r *RecipientResolver) addCard(ctx context.Context, set *recipientSet, taskID uint) error {
	assignee, err := r.tasks.AssigneeOf(ctx, taskID)
	if err != nil {
		return err
	}
	if assignee != nil {
		set.add(*assignee)
	}
	creator, err := r.tasks.CreatorOf(ctx, taskID)
	if err != nil {
		return err
	}
	set.add(creator)
	return nil
}

func (r *RecipientResolver) addMention(ctx context.Context, set *recipientSet, taskID uint, m Mention) error {
	switch m.Kind {
	case MentionCard:
		return r.addCard(ctx, set, taskID)
	case MentionBoard:
		projectID, err := r.tasks.ProjectOf(ctx, taskID)
		if err != nil {
			return err
		}
		members, err := r.projects.MembersOf(ctx, projectID)
		if err != nil {
			return err
		}
		set.add(members...)
		return nil
	case MentionUser:
		u, err := r.users.FindByEmail(ctx, m.Email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				logrus.WithFields(logrus.Fields{"task_id": taskID, "mention": m.Email}).
					Debug("mention target not found, skipping")
				return nil
			}
			return err
		}
		set.add(u.UserID)
	}
	return nil
}
