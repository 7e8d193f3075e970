package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole представляет роли пользователей системы.
type UserRole string

const (
	RolePlayer    UserRole = "player"
	RoleOrganizer UserRole = "organizer"
	RoleFan       UserRole = "fan"
)

func (r UserRole) Valid() bool {
	switch r {
	case RolePlayer, RoleOrganizer, RoleFan:
		return true
	}
	return false
}

type User struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Username        string             `json:"username" bson:"username"`
	Email           string             `json:"email" bson:"email"`
	PasswordHash    string             `json:"-" bson:"password"`
	Role            UserRole           `json:"role" bson:"role"`
	FullName        string             `json:"full_name" bson:"full_name"`
	Bio             string             `json:"bio" bson:"bio"`
	ContactPhone    string             `json:"contact_phone" bson:"contact_phone"`
	AvatarKey       *string            `json:"-" bson:"avatar_key,omitempty"`
	ProfileImageURL string             `json:"profile_image_url" bson:"profile_image_url"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser — усечённое представление пользователя для вложенных ответов.
type PublicUser struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id"`
	Username        string             `json:"username" bson:"username"`
	FullName        string             `json:"full_name" bson:"full_name"`
	ProfileImageURL string             `json:"profile_image_url" bson:"profile_image_url"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Username:        u.Username,
		FullName:        u.FullName,
		ProfileImageURL: u.ProfileImageURL,
	}
}
