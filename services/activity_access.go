package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard-api/models"
)

// ActivityScopes answers who owns or belongs to an entity with activity history.
type ActivityScopes interface {
	RoleOf(ctx context.Context, projectID, userID uint) (models.ProjectRole, error)
	ProjectOf(ctx context.Context, taskID uint) (uint, error)
	JoinRequestByID(ctx context.Context, requestID uint) (*models.JoinRequest, error)
	PayerOf(ctx context.Context, orderID uint) (uint, error)
}

// ActivityAccess decides whether a user may read an entity's activity.
// Tasks, projects and join requests are visible to project members, a join
// request also to its requester, a payment order only to its payer. Report
// history is never served to users.
type ActivityAccess struct {
	scopes ActivityScopes
}

func NewActivityAccess(scopes ActivityScopes) *ActivityAccess {
	return &ActivityAccess{scopes: scopes}
}

// CanView returns nil when userID may read the history, ErrActivityForbidden
// when not. Missing entities are reported as forbidden too.
func (a *ActivityAccess) CanView(ctx context.Context, userID uint, entityType string, entityID uint) error {
	var err error
	switch entityType {
	case models.EntityTask:
		var projectID uint
		if projectID, err = a.scopes.ProjectOf(ctx, entityID); err == nil {
			err = a.requireMember(ctx, projectID, userID)
		}
	case models.EntityProject:
		err = a.requireMember(ctx, entityID, userID)
	case models.EntityJoinRequest:
		var jr *models.JoinRequest
		if jr, err = a.scopes.JoinRequestByID(ctx, entityID); err == nil && jr.UserID != userID {
			err = a.requireMember(ctx, jr.ProjectID, userID)
		}
	case models.EntityPaymentOrder:
		var payerID uint
		if payerID, err = a.scopes.PayerOf(ctx, entityID); err == nil && payerID != userID {
			err = ErrActivityForbidden
		}
	default:
		err = ErrActivityForbidden
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrActivityForbidden),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrSubjectNotFound),
		errors.Is(err, ErrPaymentOrderNotFound):
		return fmt.Errorf("%s %d: %w", entityType, entityID, ErrActivityForbidden)
	}
	return err
}

func (a *ActivityAccess) requireMember(ctx context.Context, projectID, userID uint) error {
	_, err := a.scopes.RoleOf(ctx, projectID, userID)
	return err
}
