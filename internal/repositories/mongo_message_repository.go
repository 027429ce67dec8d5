package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"realtime-chat/internal/models"
)

type messageDocument struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	SenderID   string        `bson:"senderId"`
	ReceiverID string        `bson:"receiverId"`
	Text       string        `bson:"text,omitempty"`
	Image      string        `bson:"image,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt"`
}

func (d messageDocument) toModel() models.Message {
	return models.Message{
		ID:         d.ID.Hex(),
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Text:       d.Text,
		Image:      d.Image,
		CreatedAt:  d.CreatedAt,
	}
}

// MongoMessageRepo stores messages in a MongoDB collection.
type MongoMessageRepo struct {
	coll *mongo.Collection
}

// NewMongoMessageRepo constructs a MongoMessageRepo.
func NewMongoMessageRepo(coll *mongo.Collection) *MongoMessageRepo {
	return &MongoMessageRepo{coll: coll}
}

// CreateMessage stores a message between two users.
func (r *MongoMessageRepo) CreateMessage(ctx context.Context, senderID, receiverID, text, image string) (models.Message, error) {
	doc := messageDocument{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
		CreatedAt:  time.Now().UTC(),
	}
	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return models.Message{}, err
	}
	doc.ID = result.InsertedID.(bson.ObjectID)
	return doc.toModel(), nil
}

// GetConversation returns messages exchanged between two users, oldest first.
func (r *MongoMessageRepo) GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"senderId": userA, "receiverId": userB},
			bson.M{"senderId": userB, "receiverId": userA},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, d.toModel())
	}
	return msgs, nil
}
