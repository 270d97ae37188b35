package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserType is the registrar's account kind.
type UserType string

const (
	UserTypeStudent UserType = "Student"
	UserTypeHOD     UserType = "HOD"
	UserTypeAdmin   UserType = "Admin"
)

// LoginRequest holds credentials forwarded to the registrar.
type LoginRequest struct {
	Username string `json:"username" binding:"required" validate:"required"`
	Password string `json:"password" binding:"required" validate:"required"`
}

// RegistrarLogin is the POST /login/ response.
type RegistrarLogin struct {
	Token    string   `json:"token"`
	UserType UserType `json:"user_type"`
	ID       int      `json:"id"`
	Username string   `json:"username"`
}

// LoginResponse returns the gateway session token.
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	User        UserInfo `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       int      `json:"id"`
	Username string   `json:"username"`
	UserType UserType `json:"user_type"`
}

// SessionClaims is the gateway JWT payload; RegisteredClaims.ID is the session id.
type SessionClaims struct {
	UserID   int      `json:"user_id"`
	Username string   `json:"username"`
	UserType UserType `json:"user_type"`
	jwt.RegisteredClaims
}
