package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Progress tracks per-user completion state for one course. Unique per
// (userId, courseId).
type Progress struct {
	ID                   primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID               primitive.ObjectID   `bson:"userId" json:"userId"`
	CourseID             primitive.ObjectID   `bson:"courseId" json:"courseId"`
	CompletedVideos      []primitive.ObjectID `bson:"completedVideos,omitempty" json:"completedVideos"`
	LastWatchedVideo     primitive.ObjectID   `bson:"lastWatchedVideo,omitempty" json:"lastWatchedVideo,omitempty"`
	LastPosition         float64              `bson:"lastPosition" json:"lastPosition"`
	CompletionPercentage int                  `bson:"completionPercentage" json:"completionPercentage"`
	CreatedAt            time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Rating is a per-user rating and comment for a course. One per
// (userId, courseId); resubmitting replaces the previous values.
type Rating struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CourseID  primitive.ObjectID `bson:"courseId" json:"courseId"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	UserName  string             `bson:"userName,omitempty" json:"userName,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Certificate is issued once per (userId, courseId) on full completion.
type Certificate struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	CourseID      primitive.ObjectID `bson:"courseId" json:"courseId"`
	CertificateID string             `bson:"certificateId" json:"certificateId"`
	StudentName   string             `bson:"studentName" json:"studentName"`
	CourseName    string             `bson:"courseName" json:"courseName"`
	IssuedAt      time.Time          `bson:"issuedAt" json:"issuedAt"`
}
