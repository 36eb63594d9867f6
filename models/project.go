package models

import "time"

type ProjectRole string

const (
	RoleOwner  ProjectRole = "OWNER"
	RoleAdmin  ProjectRole = "ADMIN"
	RolePM     ProjectRole = "PM"
	RoleMember ProjectRole = "MEMBER"
)

// CanReviewJoinRequests reports whether members with this role receive join requests.
// OWNER alone does not qualify.
func (r ProjectRole) CanReviewJoinRequests() bool {
	return r == RoleAdmin || r == RolePM
}

// ProjectMember represents the project_members table
type ProjectMember struct {
	ProjectID uint        `gorm:"primaryKey;column:project_id" json:"project_id"`
	UserID    uint        `gorm:"primaryKey;column:user_id" json:"user_id"`
	Role      ProjectRole `gorm:"column:role" json:"role"`
	JoinedAt  time.Time   `gorm:"column:joined_at" json:"joined_at"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}

type Project struct {
	ProjectID uint   `gorm:"primaryKey;column:project_id" json:"project_id"`
	Name      string `gorm:"column:name" json:"name"`
	Archived  bool   `gorm:"column:archived" json:"archived"`
}

func (Project) TableName() string {
	return "projects"
}

type Task struct {
	TaskID     uint   `gorm:"primaryKey;column:task_id" json:"task_id"`
	ProjectID  uint   `gorm:"column:project_id" json:"project_id"`
	Title      string `gorm:"column:title" json:"title"`
	AssigneeID *uint  `gorm:"column:assignee_id" json:"assignee_id,omitempty"`
	CreatorID  uint   `gorm:"column:creator_id" json:"creator_id"`
}

func (Task) TableName() string {
	return "tasks"
}

type TaskFollower struct {
	TaskID uint `gorm:"primaryKey;column:task_id" json:"task_id"`
	UserID uint `gorm:"primaryKey;column:user_id" json:"user_id"`
}

func (TaskFollower) TableName() string {
	return "task_followers"
}

type JoinRequest struct {
	RequestID uint   `gorm:"primaryKey;column:request_id" json:"request_id"`
	ProjectID uint   `gorm:"column:project_id" json:"project_id"`
	UserID    uint   `gorm:"column:user_id" json:"user_id"`
	Status    string `gorm:"column:status" json:"status"`
}

func (JoinRequest) TableName() string {
	return "join_requests"
}
