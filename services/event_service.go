package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"taskboard-api/models"
)

// EventService turns business occurrences into events. Each method composes
// the notification text and the activity entry, then publishes.
type EventService struct {
	publisher EventPublisher
	users     UserDirectory
	names     EntityNames
}

func NewEventService(publisher EventPublisher, users UserDirectory, names EntityNames) *EventService {
	return &EventService{publisher: publisher, users: users, names: names}
}

func (s *EventService) actorName(ctx context.Context, actorID uint) string {
	if actorID == 0 {
		return "Someone"
	}
	u, err := s.users.FindByID(ctx, actorID)
	if err != nil || strings.TrimSpace(u.Name) == "" {
		return "Someone"
	}
	return u.Name
}

func (s *EventService) taskTitle(ctx context.Context, taskID uint) string {
	title, err := s.names.TaskTitle(ctx, taskID)
	if err != nil || strings.TrimSpace(title) == "" {
		return fmt.Sprintf("task #%d", taskID)
	}
	return fmt.Sprintf("%q", title)
}

func (s *EventService) projectName(ctx context.Context, projectID uint) string {
	name, err := s.names.ProjectName(ctx, projectID)
	if err != nil || strings.TrimSpace(name) == "" {
		return fmt.Sprintf("project #%d", projectID)
	}
	return fmt.Sprintf("%q", name)
}

func taskLink(taskID uint) string       { return fmt.Sprintf("/tasks/%d", taskID) }
func projectLink(projectID uint) string { return fmt.Sprintf("/projects/%d", projectID) }

// TaskCommented notifies the task audience plus everyone the comment mentions.
func (s *EventService) TaskCommented(ctx context.Context, authorID, taskID, commentID uint, body string) (DispatchReport, error) {
	mentions := ParseMentions(body)
	tokens := make([]string, 0, len(mentions))
	for _, m := range mentions {
		tokens = append(tokens, m.String())
	}
	logrus.WithFields(logrus.Fields{"task_id": taskID, "mentions": len(mentions)}).Debug("comment parsed")

	return s.publisher.Publish(ctx, Event{
		Kind:     models.KindTaskCommented,
		Subject:  TaskSubject{TaskID: taskID},
		ActorID:  uintPtr(authorID),
		Mentions: mentions,
		Title:    fmt.Sprintf("%s commented on %s", s.actorName(ctx, authorID), s.taskTitle(ctx, taskID)),
		Message:  commentPreview(body),
		Link:     fmt.Sprintf("%s#comment-%d", taskLink(taskID), commentID),
		Activity: &ActivityEntry{
			Action:  "task_commented",
			Payload: map[string]any{"comment_id": commentID, "mentions": tokens},
		},
	})
}

const commentPreviewLimit = 200

// commentPreview flattens a comment body to a short plain-text line.
func commentPreview(body string) string {
	text := strings.Join(strings.Fields(body), " ")
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return "New comment"
	}
	runes := []rune(text)
	if len(runes) > commentPreviewLimit {
		return string(runes[:commentPreviewLimit]) + "..."
	}
	return text
}

func (s *EventService) TaskAssigned(ctx context.Context, actorID, taskID, assigneeID uint) (DispatchReport, error) {
	return s.publisher.Publish(ctx, Event{
		Kind:    models.KindTaskAssigned,
		Subject: TaskSubject{TaskID: taskID},
		ActorID: uintPtr(actorID),
		Title:   fmt.Sprintf("%s assigned %s", s.actorName(ctx, actorID), s.taskTitle(ctx, taskID)),
		Message: fmt.Sprintf("%s is now working on this task.", s.actorName(ctx, assigneeID)),
		Link:    taskLink(taskID),
		Activity: &ActivityEntry{
			Action:  "task_assigned",
			Payload: map[string]any{"assignee_id": assigneeID},
		},
	})
}

// TaskDueSoon is raised by the scheduler; it has no actor.
func (s *EventService) TaskDueSoon(ctx context.Context, taskID uint, dueIn string) (DispatchReport, error) {
	msg := "This task is due soon."
	if dueIn = strings.TrimSpace(dueIn); dueIn != "" {
		msg = fmt.Sprintf("This task is due in %s.", dueIn)
	}
	return s.publisher.Publish(ctx, Event{
		Kind:    models.KindTaskDueSoon,
		Subject: TaskSubject{TaskID: taskID},
		Title:   fmt.Sprintf("%s is due soon", s.taskTitle(ctx, taskID)),
		Message: msg,
		Link:    taskLink(taskID),
		Activity: &ActivityEntry{
			Action:  "task_due_soon",
			Payload: map[string]any{"due_in": dueIn},
		},
	})
}

func (s *EventService) TaskFollowed(ctx context.Context, followerID, taskID uint) (DispatchReport, error) {
	return s.publisher.Publish(ctx, Event{
		Kind:     models.KindTaskFollowed,
		Subject:  TaskSubject{TaskID: taskID},
		ActorID:  uintPtr(followerID),
		Title:    fmt.Sprintf("%s is following %s", s.actorName(ctx, followerID), s.taskTitle(ctx, taskID)),
		Link:     taskLink(taskID),
		Activity: &ActivityEntry{Action: "task_followed"},
	})
}

func (s *EventService) ProjectCreated(ctx context.Context, ownerID, projectID uint) (DispatchReport, error) {
	return s.publisher.Publish(ctx, Event{
		Kind:     models.KindProjectCreated,
		Subject:  ProjectSubject{ProjectID: projectID},
		ActorID:  uintPtr(ownerID),
		Title:    fmt.Sprintf("%s created %s", s.actorName(ctx, ownerID), s.projectName(ctx, projectID)),
		Link:     projectLink(projectID),
		Activity: &ActivityEntry{Action: "project_created"},
	})
}

func (s *EventService) MemberAdded(ctx context.Context, actorID, projectID, memberID uint) (DispatchReport, error) {
	return s.publisher.Publish(ctx, Event{
		Kind:    models.KindMemberAdded,
		Subject: ProjectSubject{ProjectID: projectID},
		ActorID: uintPtr(actorID),
		Title:   fmt.Sprintf("%s joined %s", s.actorName(ctx, memberID), s.projectName(ctx, projectID)),
		Message: fmt.Sprintf("Added by %s.", s.actorName(ctx, actorID)),
		Link:    projectLink(projectID),
		Activity: &ActivityEntry{
			Action:  "member_added",
			Payload: map[string]any{"member_id": memberID},
		},
	})
}

func (s *EventService) ProjectArchived(ctx context.Context, actorID, projectID uint) (DispatchReport, error) {
	return s.publisher.Publish(ctx, Event{
		Kind:     models.KindProjectArchived,
		Subject:  ProjectSubject{ProjectID: projectID},
		ActorID:  uintPtr(actorID),
		Title:    fmt.Sprintf("%s archived %s", s.actorName(ctx, actorID), s.projectName(ctx, projectID)),
		Link:     projectLink(projectID),
		Activity: &ActivityEntry{Action: "project_archived"},
	})
}

func (s *EventService) JoinRequestReceived(ctx context.Context, requesterID, projectID, requestID uint) (DispatchReport, error) {
	return s.publisher.Publish(ctx, Event{
		Kind:     models.KindJoinRequestReceived,
		Subject:  JoinRequestSubject{ProjectID: projectID, RequestID: requestID, RequesterID: requesterID},
		ActorID:  uintPtr(requesterID),
		Title:    fmt.Sprintf("%s asked to join %s", s.actorName(ctx, requesterID), s.projectName(ctx, projectID)),
		Link:     fmt.Sprintf("%s/join-requests/%d", projectLink(projectID), requestID),
		Activity: &ActivityEntry{Action: "join_request_received"},
	})
}

func (s *EventService) JoinRequestApproved(ctx context.Context, reviewerID, projectID, requestID, requesterID uint) (DispatchReport, error) {
	return s.publisher.Publish(ctx, Event{
		Kind:     models.KindJoinRequestApproved,
		Subject:  JoinRequestSubject{ProjectID: projectID, RequestID: requestID, RequesterID: requesterID},
		ActorID:  uintPtr(reviewerID),
		Title:    fmt.Sprintf("Your request to join %s was approved", s.projectName(ctx, projectID)),
		Link:     projectLink(projectID),
		Activity: &ActivityEntry{Action: "join_request_approved"},
	})
}

func (s *EventService) JoinRequestRejected(ctx context.Context, reviewerID, projectID, requestID, requesterID uint, reason string) (DispatchReport, error) {
	return s.publisher.Publish(ctx, Event{
		Kind:    models.KindJoinRequestRejected,
		Subject: JoinRequestSubject{ProjectID: projectID, RequestID: requestID, RequesterID: requesterID},
		ActorID: uintPtr(reviewerID),
		Title:   fmt.Sprintf("Your request to join %s was declined", s.projectName(ctx, projectID)),
		Message: strings.TrimSpace(reason),
		Activity: &ActivityEntry{
			Action:  "join_request_rejected",
			Payload: map[string]any{"reason": strings.TrimSpace(reason)},
		},
	})
}
