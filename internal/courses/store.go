package courses

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/learnhub/learnhub/internal/models"
)

// Store defines persistence for courses and their videos. Lookups return
// (nil, nil) when no document matches.
type Store interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error)
	ListPublished(ctx context.Context, search, category string, page, limit int64) ([]models.Course, int64, error)
	Trending(ctx context.Context, limit int64) ([]models.Course, error)
	ListAll(ctx context.Context) ([]models.Course, error)
	Insert(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	SetPublished(ctx context.Context, id primitive.ObjectID, published bool) (bool, error)
	AddModule(ctx context.Context, courseID primitive.ObjectID, mod models.Module) error
	IncEnrolled(ctx context.Context, id primitive.ObjectID) error
	SetRatingStats(ctx context.Context, id primitive.ObjectID, average float64, total int) error
	CountPublished(ctx context.Context) (int64, error)
	TotalEnrollment(ctx context.Context) (int64, error)

	InsertVideo(ctx context.Context, v *models.Video) error
	FindVideoByID(ctx context.Context, id primitive.ObjectID) (*models.Video, error)
	VideosByCourse(ctx context.Context, courseID primitive.ObjectID) ([]models.Video, error)
	CountVideosByCourse(ctx context.Context, courseID primitive.ObjectID) (int64, error)
	UpdateVideo(ctx context.Context, id primitive.ObjectID, fields bson.M) (bool, error)
	DeleteVideo(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// MongoStore implements Store on the courses and videos collections.
type MongoStore struct {
	courses *mongo.Collection
	videos  *mongo.Collection
}

func NewMongoStore(courses, videos *mongo.Collection) *MongoStore {
	return &MongoStore{courses: courses, videos: videos}
}

func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	var course models.Course
	if err := s.courses.FindOne(ctx, bson.M{"_id": id}).Decode(&course); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

func (s *MongoStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	cur, err := s.courses.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Course
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPublished returns published courses with optional title/instructor
// search and category filtering, newest first.
func (s *MongoStore) ListPublished(ctx context.Context, search, category string, page, limit int64) ([]models.Course, int64, error) {
	query := bson.M{"isPublished": true}
	if search != "" {
		query["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"instructor": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if category != "" && category != "All" {
		query["category"] = category
	}
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cur, err := s.courses.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var out []models.Course
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	total, err := s.courses.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Trending surfaces the most popular published courses: most enrolled
// first, best rated as tiebreak.
func (s *MongoStore) Trending(ctx context.Context, limit int64) ([]models.Course, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "enrolledCount", Value: -1}, {Key: "averageRating", Value: -1}}).
		SetLimit(limit)
	cur, err := s.courses.Find(ctx, bson.M{"isPublished": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Course
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) ListAll(ctx context.Context) ([]models.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.courses.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Course
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Insert(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.ID.IsZero() {
		course.ID = primitive.NewObjectID()
	}
	course.CreatedAt = now
	course.UpdatedAt = now
	_, err := s.courses.InsertOne(ctx, course)
	return err
}

func (s *MongoStore) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (bool, error) {
	fields["updatedAt"] = time.Now().UTC()
	res, err := s.courses.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.courses.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	// videos are owned by the course; drop them along with it
	if _, verr := s.videos.DeleteMany(ctx, bson.M{"courseId": id}); verr != nil {
		return res.DeletedCount > 0, verr
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) SetPublished(ctx context.Context, id primitive.ObjectID, published bool) (bool, error) {
	res, err := s.courses.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"isPublished": published,
		"updatedAt":   time.Now().UTC(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) AddModule(ctx context.Context, courseID primitive.ObjectID, mod models.Module) error {
	_, err := s.courses.UpdateByID(ctx, courseID, bson.M{
		"$push": bson.M{"modules": mod},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

func (s *MongoStore) IncEnrolled(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.courses.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"enrolledCount": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

func (s *MongoStore) SetRatingStats(ctx context.Context, id primitive.ObjectID, average float64, total int) error {
	_, err := s.courses.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"averageRating": average,
		"totalRatings":  total,
		"updatedAt":     time.Now().UTC(),
	}})
	return err
}

func (s *MongoStore) CountPublished(ctx context.Context) (int64, error) {
	return s.courses.CountDocuments(ctx, bson.M{"isPublished": true})
}

// TotalEnrollment sums enrolledCount across all courses.
func (s *MongoStore) TotalEnrollment(ctx context.Context) (int64, error) {
	cur, err := s.courses.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$enrolledCount"},
		}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (s *MongoStore) InsertVideo(ctx context.Context, v *models.Video) error {
	now := time.Now().UTC()
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	if _, err := s.videos.InsertOne(ctx, v); err != nil {
		return err
	}
	// register the video inside its module's ordered list
	_, err := s.courses.UpdateOne(ctx,
		bson.M{"_id": v.CourseID, "modules._id": v.ModuleID},
		bson.M{
			"$addToSet": bson.M{"modules.$.videos": v.ID},
			"$set":      bson.M{"updatedAt": now},
		})
	return err
}

func (s *MongoStore) FindVideoByID(ctx context.Context, id primitive.ObjectID) (*models.Video, error) {
	var v models.Video
	if err := s.videos.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (s *MongoStore) VideosByCourse(ctx context.Context, courseID primitive.ObjectID) ([]models.Video, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	cur, err := s.videos.Find(ctx, bson.M{"courseId": courseID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Video
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CountVideosByCourse(ctx context.Context, courseID primitive.ObjectID) (int64, error) {
	return s.videos.CountDocuments(ctx, bson.M{"courseId": courseID})
}

func (s *MongoStore) UpdateVideo(ctx context.Context, id primitive.ObjectID, fields bson.M) (bool, error) {
	fields["updatedAt"] = time.Now().UTC()
	res, err := s.videos.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) DeleteVideo(ctx context.Context, id primitive.ObjectID) (bool, error) {
	v, err := s.FindVideoByID(ctx, id)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	if _, err := s.videos.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return false, err
	}
	_, err = s.courses.UpdateOne(ctx,
		bson.M{"_id": v.CourseID, "modules._id": v.ModuleID},
		bson.M{
			"$pull": bson.M{"modules.$.videos": id},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	return true, err
}
