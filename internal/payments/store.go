package payments

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/learnhub/learnhub/internal/models"
)

// Store defines persistence for payment records.
type Store interface {
	Insert(ctx context.Context, p *models.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	MarkPaid(ctx context.Context, orderID, paymentID, signature string) error
	MarkFailed(ctx context.Context, orderID string) error
	ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Payment, error)
	ListAll(ctx context.Context, status string, page, limit int64) ([]models.Payment, int64, error)
	RecentPaid(ctx context.Context, since time.Time, limit int64) ([]models.Payment, error)
	// Revenue sums settled payment amounts.
	Revenue(ctx context.Context) (float64, error)
}

// MongoStore implements Store on the payments collection.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

func (s *MongoStore) Insert(ctx context.Context, p *models.Payment) error {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Status == "" {
		p.Status = models.PaymentCreated
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.col.InsertOne(ctx, p)
	return err
}

func (s *MongoStore) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := s.col.FindOne(ctx, bson.M{"razorpayOrderId": orderID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) MarkPaid(ctx context.Context, orderID, paymentID, signature string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"razorpayOrderId": orderID}, bson.M{"$set": bson.M{
		"status":            models.PaymentPaid,
		"razorpayPaymentId": paymentID,
		"razorpaySignature": signature,
		"updatedAt":         time.Now().UTC(),
	}})
	return err
}

func (s *MongoStore) MarkFailed(ctx context.Context, orderID string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"razorpayOrderId": orderID}, bson.M{"$set": bson.M{
		"status":    models.PaymentFailed,
		"updatedAt": time.Now().UTC(),
	}})
	return err
}

func (s *MongoStore) ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Payment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) ListAll(ctx context.Context, status string, page, limit int64) ([]models.Payment, int64, error) {
	if page < 1 {
		page = 1
	}
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cur, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var out []models.Payment
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	total, err := s.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// RecentPaid returns settled payments newer than since, newest first.
func (s *MongoStore) RecentPaid(ctx context.Context, since time.Time, limit int64) ([]models.Payment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{
		"status":    models.PaymentPaid,
		"createdAt": bson.M{"$gte": since},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Payment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Revenue(ctx context.Context) (float64, error) {
	cur, err := s.col.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"status": models.PaymentPaid}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
