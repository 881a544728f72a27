package progress

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/learnhub/learnhub/internal/models"
)

// Store defines persistence for per-course learning state: progress
// documents, ratings and issued certificates.
type Store interface {
	Get(ctx context.Context, userID, courseID primitive.ObjectID) (*models.Progress, error)
	ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Progress, error)
	// MarkVideoCompleted records a watched video and refreshes the
	// completion percentage, creating the progress document on first touch.
	MarkVideoCompleted(ctx context.Context, userID, courseID, videoID primitive.ObjectID, totalVideos int64) (*models.Progress, error)
	SetLastWatched(ctx context.Context, userID, courseID, videoID primitive.ObjectID, position float64) error

	UpsertRating(ctx context.Context, r *models.Rating) error
	RatingsByCourse(ctx context.Context, courseID primitive.ObjectID, page, limit int64) ([]models.Rating, int64, error)
	RatingStats(ctx context.Context, courseID primitive.ObjectID) (average float64, total int64, err error)

	InsertCertificate(ctx context.Context, cert *models.Certificate) error
	CertificateFor(ctx context.Context, userID, courseID primitive.ObjectID) (*models.Certificate, error)
	CertificateByPublicID(ctx context.Context, certificateID string) (*models.Certificate, error)
	CertificatesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Certificate, error)
}

// MongoStore implements Store on the progress, ratings and certificates
// collections.
type MongoStore struct {
	progress     *mongo.Collection
	ratings      *mongo.Collection
	certificates *mongo.Collection
}

func NewMongoStore(progress, ratings, certificates *mongo.Collection) *MongoStore {
	return &MongoStore{progress: progress, ratings: ratings, certificates: certificates}
}

func (s *MongoStore) Get(ctx context.Context, userID, courseID primitive.ObjectID) (*models.Progress, error) {
	var p models.Progress
	err := s.progress.FindOne(ctx, bson.M{"userId": userID, "courseId": courseID}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Progress, error) {
	cur, err := s.progress.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Progress
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) MarkVideoCompleted(ctx context.Context, userID, courseID, videoID primitive.ObjectID, totalVideos int64) (*models.Progress, error) {
	now := time.Now().UTC()
	filter := bson.M{"userId": userID, "courseId": courseID}
	update := bson.M{
		"$addToSet": bson.M{"completedVideos": videoID},
		"$set": bson.M{
			"lastWatchedVideo": videoID,
			"updatedAt":        now,
		},
		"$setOnInsert": bson.M{
			"userId":    userID,
			"courseId":  courseID,
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var p models.Progress
	if err := s.progress.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p); err != nil {
		return nil, err
	}
	// percentage derives from the distinct completed set, so it is computed
	// after the $addToSet has landed
	pct := 0
	if totalVideos > 0 {
		pct = int(int64(len(p.CompletedVideos)) * 100 / totalVideos)
		if pct > 100 {
			pct = 100
		}
	}
	if pct != p.CompletionPercentage {
		if _, err := s.progress.UpdateByID(ctx, p.ID, bson.M{"$set": bson.M{"completionPercentage": pct}}); err != nil {
			return nil, err
		}
		p.CompletionPercentage = pct
	}
	return &p, nil
}

func (s *MongoStore) SetLastWatched(ctx context.Context, userID, courseID, videoID primitive.ObjectID, position float64) error {
	now := time.Now().UTC()
	_, err := s.progress.UpdateOne(ctx,
		bson.M{"userId": userID, "courseId": courseID},
		bson.M{
			"$set": bson.M{
				"lastWatchedVideo": videoID,
				"lastPosition":     position,
				"updatedAt":        now,
			},
			"$setOnInsert": bson.M{
				"userId":    userID,
				"courseId":  courseID,
				"createdAt": now,
			},
		},
		options.Update().SetUpsert(true))
	return err
}

// UpsertRating replaces a user's previous rating for the course if present.
func (s *MongoStore) UpsertRating(ctx context.Context, r *models.Rating) error {
	now := time.Now().UTC()
	_, err := s.ratings.UpdateOne(ctx,
		bson.M{"userId": r.UserID, "courseId": r.CourseID},
		bson.M{
			"$set": bson.M{
				"rating":    r.Rating,
				"comment":   r.Comment,
				"userName":  r.UserName,
				"updatedAt": now,
			},
			"$setOnInsert": bson.M{
				"userId":    r.UserID,
				"courseId":  r.CourseID,
				"createdAt": now,
			},
		},
		options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) RatingsByCourse(ctx context.Context, courseID primitive.ObjectID, page, limit int64) ([]models.Rating, int64, error) {
	if page < 1 {
		page = 1
	}
	query := bson.M{"courseId": courseID}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cur, err := s.ratings.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var out []models.Rating
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	total, err := s.ratings.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *MongoStore) RatingStats(ctx context.Context, courseID primitive.ObjectID) (float64, int64, error) {
	cur, err := s.ratings.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"courseId": courseID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"total":   bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		Average float64 `bson:"average"`
		Total   int64   `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Average, rows[0].Total, nil
}

func (s *MongoStore) InsertCertificate(ctx context.Context, cert *models.Certificate) error {
	if cert.ID.IsZero() {
		cert.ID = primitive.NewObjectID()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}
	_, err := s.certificates.InsertOne(ctx, cert)
	return err
}

func (s *MongoStore) CertificateFor(ctx context.Context, userID, courseID primitive.ObjectID) (*models.Certificate, error) {
	var cert models.Certificate
	err := s.certificates.FindOne(ctx, bson.M{"userId": userID, "courseId": courseID}).Decode(&cert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}

func (s *MongoStore) CertificateByPublicID(ctx context.Context, certificateID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := s.certificates.FindOne(ctx, bson.M{"certificateId": certificateID}).Decode(&cert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}

func (s *MongoStore) CertificatesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Certificate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "issuedAt", Value: -1}})
	cur, err := s.certificates.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Certificate
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
