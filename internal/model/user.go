package model

type UserRole string

const (
	Contestant UserRole = "contestant"
	Admin      UserRole = "admin"
)

// swagger:model User
type User struct {
	UUIDBase
	Username string   `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email    string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'contestant'" json:"role"`
	TeamID   *string  `gorm:"type:varchar(36);index" json:"teamId,omitempty"`
	TeamName string   `gorm:"size:100" json:"teamName"`
}

func (User) TableName() string {
	return "users"
}

// Actor 会话提供方给出的操作者身份，所有角色校验都以它为准
type Actor struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	TeamName string   `json:"teamName"`
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == Admin
}

// IsContestant 已登录、角色为参赛者且有所属队伍
func (a *Actor) IsContestant() bool {
	return a != nil && a.ID != "" && a.Role == Contestant && a.TeamName != ""
}
