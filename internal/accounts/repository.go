package accounts

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/learnhub/learnhub/internal/models"
)

// Repository defines persistence operations for accounts. Lookups return
// (nil, nil) when no document matches.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	// StoreSession writes the session token and refresh hash in one atomic
	// update, superseding any previous session for the account.
	StoreSession(ctx context.Context, id primitive.ObjectID, sessionToken, refreshHash string) error
	ClearSession(ctx context.Context, id primitive.ObjectID) error
	AddEnrolledCourse(ctx context.Context, id, courseID primitive.ObjectID) error
	SetSubscription(ctx context.Context, id primitive.ObjectID, sub models.Subscription) error
	ListStudents(ctx context.Context, search string, page, limit int64) ([]models.User, int64, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}

// MongoRepository implements Repository on the users collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) Insert(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, u)
	return err
}

func (r *MongoRepository) StoreSession(ctx context.Context, id primitive.ObjectID, sessionToken, refreshHash string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"sessionToken":     sessionToken,
		"refreshTokenHash": refreshHash,
		"updatedAt":        time.Now().UTC(),
	}})
	return err
}

func (r *MongoRepository) ClearSession(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$unset": bson.M{"sessionToken": "", "refreshTokenHash": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

func (r *MongoRepository) AddEnrolledCourse(ctx context.Context, id, courseID primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"enrolledCourses": courseID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

func (r *MongoRepository) SetSubscription(ctx context.Context, id primitive.ObjectID, sub models.Subscription) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"subscription": sub,
		"updatedAt":    time.Now().UTC(),
	}})
	return err
}

func (r *MongoRepository) ListStudents(ctx context.Context, search string, page, limit int64) ([]models.User, int64, error) {
	query := bson.M{"role": models.RoleStudent}
	if search != "" {
		query["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *MongoRepository) DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"role": role})
}
