package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Admin is an administrator account stored in the admins collection.
type Admin struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"password_hash" json:"-"`
	Role         string        `bson:"role" json:"role"`
	IsActive     bool          `bson:"is_active" json:"is_active"`
	LastLoginAt  *time.Time    `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt    *time.Time    `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// LoginRequest is the POST /login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminInfo is the public view of an admin account returned on login.
type AdminInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse is the POST /login response body.
type LoginResponse struct {
	Token string    `json:"token"`
	Admin AdminInfo `json:"admin"`
}

// UpdateStageRequest is the PUT /urls/:id payload.
type UpdateStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// RecordPage is the paginated GET /urls response body.
type RecordPage struct {
	Items []Record `json:"items"`
	Total int64    `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
	Pages int64    `json:"pages"`
}
