package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles recognised by the platform. Self-registration always produces a
// student; admin accounts are provisioned out of band.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Subscription is the embedded subscription state on a user document.
type Subscription struct {
	Plan      string    `bson:"plan,omitempty" json:"plan,omitempty"`
	Status    string    `bson:"status,omitempty" json:"status,omitempty"`
	ExpiresAt time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// User is the account document. Authentication state (password hash, session
// token, refresh token hash) lives on the same record as the profile fields
// but is never serialised to JSON.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"`
	Role     string             `bson:"role" json:"role"`
	Avatar   string             `bson:"avatar,omitempty" json:"avatar,omitempty"`

	// SessionToken identifies the single currently-valid login. A new login
	// overwrites it, which invalidates every access token minted for the
	// previous session.
	SessionToken string `bson:"sessionToken,omitempty" json:"-"`
	// RefreshTokenHash is the sha256 of the outstanding refresh token.
	// Refresh requests must match it, which makes refresh tokens revocable.
	RefreshTokenHash string `bson:"refreshTokenHash,omitempty" json:"-"`

	EnrolledCourses []primitive.ObjectID `bson:"enrolledCourses,omitempty" json:"enrolledCourses"`
	Subscription    Subscription         `bson:"subscription,omitempty" json:"subscription"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the projection returned to clients: no password hash, no
// session token, no refresh hash.
type PublicUser struct {
	ID              primitive.ObjectID   `json:"id"`
	Name            string               `json:"name"`
	Email           string               `json:"email"`
	Role            string               `json:"role"`
	Avatar          string               `json:"avatar,omitempty"`
	EnrolledCourses []primitive.ObjectID `json:"enrolledCourses"`
	Subscription    Subscription         `json:"subscription"`
}

// Public returns the client-safe projection of the user.
func (u *User) Public() PublicUser {
	enrolled := u.EnrolledCourses
	if enrolled == nil {
		enrolled = []primitive.ObjectID{}
	}
	return PublicUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Avatar:          u.Avatar,
		EnrolledCourses: enrolled,
		Subscription:    u.Subscription,
	}
}
