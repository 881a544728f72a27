package chats

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/learnhub/learnhub/internal/models"
)

// Store defines persistence for doubt threads and notifications.
type Store interface {
	InsertChat(ctx context.Context, chat *models.Chat) error
	FindChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	ChatsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error)
	ListChats(ctx context.Context, status string) ([]models.Chat, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	AppendMessage(ctx context.Context, chatID primitive.ObjectID, msg models.ChatMessage) (bool, error)
	SetChatStatus(ctx context.Context, chatID primitive.ObjectID, status string) (bool, error)

	InsertNotification(ctx context.Context, n *models.Notification) error
	NotificationsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
	DeleteNotification(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// MongoStore implements Store on the chats and notifications collections.
type MongoStore struct {
	chats         *mongo.Collection
	notifications *mongo.Collection
}

func NewMongoStore(chats, notifications *mongo.Collection) *MongoStore {
	return &MongoStore{chats: chats, notifications: notifications}
}

func (s *MongoStore) InsertChat(ctx context.Context, chat *models.Chat) error {
	now := time.Now().UTC()
	if chat.ID.IsZero() {
		chat.ID = primitive.NewObjectID()
	}
	if chat.Status == "" {
		chat.Status = models.ChatOpen
	}
	chat.CreatedAt = now
	chat.UpdatedAt = now
	_, err := s.chats.InsertOne(ctx, chat)
	return err
}

func (s *MongoStore) FindChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	if err := s.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&chat); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &chat, nil
}

func (s *MongoStore) ChatsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := s.chats.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Chat
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListChats returns every thread, optionally filtered by status. Admin view.
func (s *MongoStore) ListChats(ctx context.Context, status string) ([]models.Chat, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := s.chats.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Chat
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.chats.CountDocuments(ctx, bson.M{"status": status})
}

func (s *MongoStore) AppendMessage(ctx context.Context, chatID primitive.ObjectID, msg models.ChatMessage) (bool, error) {
	res, err := s.chats.UpdateByID(ctx, chatID, bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) SetChatStatus(ctx context.Context, chatID primitive.ObjectID, status string) (bool, error) {
	res, err := s.chats.UpdateByID(ctx, chatID, bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.CreatedAt = time.Now().UTC()
	_, err := s.notifications.InsertOne(ctx, n)
	return err
}

// NotificationsForUser returns broadcast notifications plus those targeted
// at the user, newest first, with IsRead computed for the caller.
func (s *MongoStore) NotificationsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	query := bson.M{"$or": bson.A{
		bson.M{"targetAll": true},
		bson.M{"targetUsers": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.notifications.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		for _, r := range out[i].ReadBy {
			if r == userID {
				out[i].IsRead = true
				break
			}
		}
	}
	return out, nil
}

func (s *MongoStore) MarkNotificationRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	res, err := s.notifications.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"readBy": userID},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) DeleteNotification(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.notifications.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
