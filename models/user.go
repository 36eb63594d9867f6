package models

type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountBanned AccountStatus = "banned"
)

// User is the subset of the users table the notification engine reads.
type User struct {
	UserID        uint          `gorm:"primaryKey;column:user_id" json:"user_id"`
	Email         string        `gorm:"column:email;unique" json:"email"`
	Name          string        `gorm:"column:name" json:"name"`
	AvatarURL     string        `gorm:"column:avatar_url" json:"avatar_url"`
	AccountStatus AccountStatus `gorm:"column:account_status" json:"account_status"`
}

func (User) TableName() string {
	return "users"
}
