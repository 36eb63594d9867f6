package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskboard-api/config"
	"taskboard-api/models"
	"taskboard-api/utils"
)

// UserDirectory resolves identities for recipient resolution and delivery addressing.
type UserDirectory interface {
	FindByID(ctx context.Context, userID uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// ProjectMembership answers who belongs to a project and in which role.
type ProjectMembership interface {
	MembersOf(ctx context.Context, projectID uint) ([]uint, error)
	RoleOf(ctx context.Context, projectID, userID uint) (models.ProjectRole, error)
}

// TaskGraph answers the task-scoped fan-out questions.
type TaskGraph interface {
	FollowersOf(ctx context.Context, taskID uint) ([]uint, error)
	AssigneeOf(ctx context.Context, taskID uint) (*uint, error)
	CreatorOf(ctx context.Context, taskID uint) (uint, error)
	ProjectOf(ctx context.Context, taskID uint) (uint, error)
}

// AccountStore changes a user's account status (moderation).
type AccountStore interface {
	SetAccountStatus(ctx context.Context, userID uint, status models.AccountStatus) error
}

// GormDirectory implements the lookup interfaces over the users, projects,
// project_members, tasks and task_followers tables.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	if db == nil {
		db = config.DB
	}
	return &GormDirectory{db: db}
}

func (d *GormDirectory) FindByID(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := d.db.WithContext(ctx).First(&u, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (d *GormDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := d.db.WithContext(ctx).First(&u, "LOWER(email) = ?", utils.NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", email, ErrUserNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (d *GormDirectory) SetAccountStatus(ctx context.Context, userID uint, status models.AccountStatus) error {
	res := d.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("account_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	return nil
}

func (d *GormDirectory) MembersOf(ctx context.Context, projectID uint) ([]uint, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.Project{}).
		Where("project_id = ?", projectID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("project %d: %w", projectID, ErrSubjectNotFound)
	}

	var ids []uint
	if err := d.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ?", projectID).
		Order("joined_at ASC, user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *GormDirectory) RoleOf(ctx context.Context, projectID, userID uint) (models.ProjectRole, error) {
	var m models.ProjectMember
	if err := d.db.WithContext(ctx).
		First(&m, "project_id = ? AND user_id = ?", projectID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("user %d is not a member of project %d: %w", userID, projectID, ErrUserNotFound)
		}
		return "", err
	}
	return m.Role, nil
}

func (d *GormDirectory) loadTask(ctx context.Context, taskID uint) (*models.Task, error) {
	var t models.Task
	if err := d.db.WithContext(ctx).First(&t, "task_id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", taskID, ErrSubjectNotFound)
		}
		return nil, err
	}
	return &t, nil
}

func (d *GormDirectory) FollowersOf(ctx context.Context, taskID uint) ([]uint, error) {
	if _, err := d.loadTask(ctx, taskID); err != nil {
		return nil, err
	}
	var ids []uint
	if err := d.db.WithContext(ctx).Model(&models.TaskFollower{}).
		Where("task_id = ?", taskID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *GormDirectory) AssigneeOf(ctx context.Context, taskID uint) (*uint, error) {
	t, err := d.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return t.AssigneeID, nil
}

func (d *GormDirectory) CreatorOf(ctx context.Context, taskID uint) (uint, error) {
	t, err := d.loadTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return t.CreatorID, nil
}

func (d *GormDirectory) ProjectOf(ctx context.Context, taskID uint) (uint, error) {
	t, err := d.loadTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return t.ProjectID, nil
}

// EntityNames supplies display names for notification text.
type EntityNames interface {
	TaskTitle(ctx context.Context, taskID uint) (string, error)
	ProjectName(ctx context.Context, projectID uint) (string, error)
}

func (d *GormDirectory) TaskTitle(ctx context.Context, taskID uint) (string, error) {
	t, err := d.loadTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	return t.Title, nil
}

func (d *GormDirectory) ProjectName(ctx context.Context, projectID uint) (string, error) {
	var p models.Project
	if err := d.db.WithContext(ctx).First(&p, "project_id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("project %d: %w", projectID, ErrSubjectNotFound)
		}
		return "", err
	}
	return p.Name, nil
}

func (d *GormDirectory) JoinRequestByID(ctx context.Context, requestID uint) (*models.JoinRequest, error) {
	var jr models.JoinRequest
	if err := d.db.WithContext(ctx).First(&jr, "request_id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("join request %d: %w", requestID, ErrSubjectNotFound)
		}
		return nil, err
	}
	return &jr, nil
}

func (d *GormDirectory) PayerOf(ctx context.Context, orderID uint) (uint, error) {
	var o models.PaymentOrder
	if err := d.db.WithContext(ctx).Select("order_id", "user_id").First(&o, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("order %d: %w", orderID, ErrPaymentOrderNotFound)
		}
		return 0, err
	}
	return o.UserID, nil
}
