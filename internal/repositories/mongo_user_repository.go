package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"realtime-chat/internal/models"
)

type userDocument struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	FullName       string        `bson:"fullName"`
	Email          string        `bson:"email"`
	Password       string        `bson:"password"`
	ProfilePic     string        `bson:"profilePic"`
	ResetTokenHash *string       `bson:"resetTokenHash,omitempty"`
	ResetExpiresAt *time.Time    `bson:"resetExpiresAt,omitempty"`
	CreatedAt      time.Time     `bson:"createdAt"`
	UpdatedAt      time.Time     `bson:"updatedAt"`
}

func (d userDocument) toModel() models.User {
	return models.User{
		ID:             d.ID.Hex(),
		FullName:       d.FullName,
		Email:          d.Email,
		PasswordHash:   d.Password,
		ProfilePic:     d.ProfilePic,
		ResetTokenHash: d.ResetTokenHash,
		ResetExpiresAt: d.ResetExpiresAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// MongoUserRepo stores users in a MongoDB collection.
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo constructs a MongoUserRepo.
func NewMongoUserRepo(coll *mongo.Collection) *MongoUserRepo {
	return &MongoUserRepo{coll: coll}
}

// CreateUser inserts a new account. The unique email index rejects duplicates.
func (r *MongoUserRepo) CreateUser(ctx context.Context, fullName, email, passwordHash string) (models.User, error) {
	now := time.Now().UTC()
	doc := userDocument{
		FullName:  fullName,
		Email:     email,
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	doc.ID = result.InsertedID.(bson.ObjectID)
	return doc.toModel(), nil
}

// GetByEmail fetches a user by email.
func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByID fetches a user by hex object id.
func (r *MongoUserRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// ListUsers returns every account ordered by name.
func (r *MongoUserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "fullName", Value: 1}}).
		SetProjection(bson.M{"password": 0, "resetTokenHash": 0, "resetExpiresAt": 0})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toModel())
	}
	return users, nil
}

// UpdateProfilePic stores a new avatar url and returns the updated user.
func (r *MongoUserRepo) UpdateProfilePic(ctx context.Context, id, url string) (models.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, ErrUserNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"profilePic": url, "updatedAt": time.Now().UTC()},
	}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return doc.toModel(), nil
}

// SetResetToken stores a hashed reset code with its expiry.
func (r *MongoUserRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"resetTokenHash": tokenHash, "resetExpiresAt": expiresAt.UTC(), "updatedAt": time.Now().UTC()},
	})
}

// GetByResetToken returns the account for email when it holds the unexpired
// reset code. Codes are only unique per account.
func (r *MongoUserRepo) GetByResetToken(ctx context.Context, email, tokenHash string, now time.Time) (models.User, error) {
	user, err := r.findOne(ctx, bson.M{
		"email":          email,
		"resetTokenHash": tokenHash,
		"resetExpiresAt": bson.M{"$gt": now.UTC()},
	})
	if errors.Is(err, ErrUserNotFound) {
		return models.User{}, ErrInvalidResetToken
	}
	return user, err
}

// ResetPassword replaces the password hash and clears any reset code.
func (r *MongoUserRepo) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"resetTokenHash": "", "resetExpiresAt": ""},
	})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepo) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrUserNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
