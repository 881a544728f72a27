package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CourseCategories is the closed set of accepted course categories.
var CourseCategories = []string{
	"Web Development",
	"Mobile Development",
	"Data Science",
	"Machine Learning",
	"DevOps",
	"Design",
	"Business",
	"Other",
}

// Module groups an ordered set of videos inside a course.
type Module struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title  string               `bson:"title" json:"title"`
	Order  int                  `bson:"order" json:"order"`
	Videos []primitive.ObjectID `bson:"videos,omitempty" json:"videos"`
}

// Course is a published or draft course document.
type Course struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description" json:"description"`
	Thumbnail     string             `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Category      string             `bson:"category" json:"category"`
	Price         float64            `bson:"price" json:"price"`
	Instructor    string             `bson:"instructor" json:"instructor"`
	Modules       []Module           `bson:"modules,omitempty" json:"modules"`
	AverageRating float64            `bson:"averageRating" json:"averageRating"`
	TotalRatings  int                `bson:"totalRatings" json:"totalRatings"`
	EnrolledCount int                `bson:"enrolledCount" json:"enrolledCount"`
	IsPublished   bool               `bson:"isPublished" json:"isPublished"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Video is an externally-hosted lecture video attached to a course module.
type Video struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	YoutubeURL  string             `bson:"youtubeUrl" json:"youtubeUrl"`
	Duration    string             `bson:"duration,omitempty" json:"duration,omitempty"`
	ModuleID    primitive.ObjectID `bson:"moduleId" json:"moduleId"`
	CourseID    primitive.ObjectID `bson:"courseId" json:"courseId"`
	Order       int                `bson:"order" json:"order"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
