package domain

import "time"

// UserRole описывает роль аккаунта на площадке.
type UserRole string

const (
	UserRoleBuyer   UserRole = "buyer"
	UserRoleManager UserRole = "manager"
	UserRoleAdmin   UserRole = "admin"
)

// User — аккаунт площадки. Ядро заказов пользователей не трогает, это
// сущность identity-хранилища с простым CRUD.
type User struct {
	ID        string
	Name      string
	Email     string // уникален в пределах хранилища
	Role      UserRole
	CreatedAt time.Time
}

// Validate проверяет обязательные поля аккаунта.
func (u *User) Validate() []error {
	var errs []error

	if u.Email == "" || u.Name == "" {
		errs = append(errs, ErrMissingRequiredFields)
	}

	return errs
}
