package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// 電話番号で一意に決まるユーザー。ロールは保存値が正。
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	Phone       string `gorm:"type:varchar(10);not null;uniqueIndex:idx_users_phone"`
	Name        string `gorm:"type:varchar(50);not null;default:''"`
	Role        Role   `gorm:"type:varchar(20);not null;default:'customer'"`
	AdminPin    string `gorm:"column:admin_pin;type:varchar(6)"`
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// 外部IDが無いときは電話番号からIDを作る
func CustomerUserID(phone string) string {
	return "customer-" + phone
}

func AdminUserID(phone string) string {
	return "admin-" + phone
}

// Identity はログイン済みユーザーの正規化された姿。
// NewIdentity 以外で組み立てない。
type Identity struct {
	ID    string `json:"id"`
	UID   string `json:"uid"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

func NewIdentity(u User) Identity {
	id := u.ID
	if id == "" {
		id = CustomerUserID(u.Phone)
	}

	role := u.Role
	if role != RoleAdmin {
		role = RoleCustomer
	}

	name := strings.TrimSpace(u.Name)
	if name == "" {
		if role == RoleAdmin {
			name = "Admin"
		} else {
			name = "Customer"
		}
	}

	return Identity{
		ID:    id,
		UID:   id,
		Phone: u.Phone,
		Name:  name,
		Role:  role,
	}
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// 注文に載せる名前と電話番号が両方とも無い
func (i Identity) MissingContact() bool {
	return strings.TrimSpace(i.Name) == "" && strings.TrimSpace(i.Phone) == ""
}
