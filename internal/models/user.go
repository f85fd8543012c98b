package models

// Role controls access to the admin act-as capability.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserProfile mirrors the signed-in principal supplied by the auth provider.
// Created on first sign-in; profile fields and LastLogin are refreshed on
// every subsequent sign-in, Role is never touched once set.
type UserProfile struct {
	UID         string `json:"uid" bson:"_id"`
	Email       string `json:"email" bson:"email"`
	DisplayName string `json:"displayName" bson:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty" bson:"photoURL,omitempty"`
	Role        Role   `json:"role" bson:"role"`
	CreatedAt   int64  `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	LastLogin   int64  `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
}
