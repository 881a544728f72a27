package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat thread status values.
const (
	ChatOpen     = "open"
	ChatResolved = "resolved"
)

// ChatMessage is one message inside a doubt thread.
type ChatMessage struct {
	Sender     primitive.ObjectID `bson:"sender" json:"sender"`
	SenderRole string             `bson:"senderRole" json:"senderRole"`
	Text       string             `bson:"text" json:"text"`
	SentAt     time.Time          `bson:"sentAt" json:"sentAt"`
}

// Chat is a threaded doubt between a student and the admins for a course.
type Chat struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID  primitive.ObjectID `bson:"courseId" json:"courseId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Subject   string             `bson:"subject" json:"subject"`
	Status    string             `bson:"status" json:"status"`
	Messages  []ChatMessage      `bson:"messages" json:"messages"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Notification is an announcement targeted at everyone or a set of users.
type Notification struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Message     string               `bson:"message" json:"message"`
	Type        string               `bson:"type,omitempty" json:"type,omitempty"`
	TargetAll   bool                 `bson:"targetAll" json:"targetAll"`
	TargetUsers []primitive.ObjectID `bson:"targetUsers,omitempty" json:"targetUsers,omitempty"`
	ReadBy      []primitive.ObjectID `bson:"readBy,omitempty" json:"-"`
	CreatedBy   primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`

	// IsRead is computed per requesting user, never stored.
	IsRead bool `bson:"-" json:"isRead"`
}
