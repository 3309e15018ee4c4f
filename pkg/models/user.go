package models

import "toolroom/pkg/metadata"

// User is a tool room account. Trainers borrow equipment; moderator and
// admin roles approve issuances for their location.
type User struct {
	ID           int               `json:"id" db:"id"`
	Username     string            `json:"username" db:"username"`
	Fullname     string            `json:"fullname" db:"fullname"`
	Email        string            `json:"email" db:"email"`
	PasswordHash string            `json:"-" db:"password_hash"`
	Role         string            `json:"role" db:"role"`
	Location     metadata.Location `json:"location" db:"location"`

	// Running issuance counters, maintained best-effort by the
	// reconciliation service.
	ToolsIssued     int `json:"tools_issued" db:"tools_issued"`
	ToolsReturned   int `json:"tools_returned" db:"tools_returned"`
	ActiveIssuance  int `json:"active_issuance" db:"active_issuance"`
	OverdueIssuance int `json:"overdue_issuance" db:"overdue_issuance"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Fullname string `json:"fullname" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Location string `json:"location"`
}

type UpdateUserRequest struct {
	Fullname *string `json:"fullname"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Location *string `json:"location"`
}

// UserChanges is the delta actually written on update, after validation
// and password hashing.
type UserChanges struct {
	PasswordHash *string
	Fullname     *string
	Email        *string
	Role         *string
	Location     *string
}

func (c *UserChanges) HasChanges() bool {
	return c.PasswordHash != nil || c.Fullname != nil || c.Email != nil || c.Role != nil || c.Location != nil
}
