package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// userDocument is the stored shape of a user
type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	Fullname     string             `bson:"fullname"`
	Password     string             `bson:"password"`
	Avatar       string             `bson:"avatar"`
	CoverImage   string             `bson:"coverImage"`
	WatchHistory []string           `bson:"watchHistory"`
	RefreshToken string             `bson:"refreshToken"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toDomain() *domain.User {
	history := d.WatchHistory
	if history == nil {
		history = []string{}
	}
	return &domain.User{
		ID:               d.ID.Hex(),
		Username:         d.Username,
		Email:            d.Email,
		Fullname:         d.Fullname,
		PasswordHash:     d.Password,
		Avatar:           d.Avatar,
		CoverImage:       d.CoverImage,
		WatchHistory:     history,
		RefreshTokenHash: d.RefreshToken,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// mongoUserRepository implements UserRepository on MongoDB
type mongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates the repository and ensures the unique indexes exist
func NewMongoUserRepository(ctx context.Context, db *database.Mongo) (UserRepository, error) {
	r := &mongoUserRepository{col: db.DB.Collection(usersCollection)}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *mongoUserRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// Create inserts a new user and assigns its ID
func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}

	doc := &userDocument{
		Username:     user.Username,
		Email:        user.Email,
		Fullname:     user.Fullname,
		Password:     user.PasswordHash,
		Avatar:       user.Avatar,
		CoverImage:   user.CoverImage,
		WatchHistory: user.WatchHistory,
		RefreshToken: user.RefreshTokenHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user %s already exists: %w", user.Username, ErrDuplicateUser)
		}
		return fmt.Errorf("mongo insert: %w", err)
	}

	user.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

// GetByID retrieves a user by ID
func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByUsernameOrEmail retrieves a user matching either identifier
func (r *mongoUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}

	return r.findOne(ctx, bson.M{"$or": or})
}

// SetRefreshToken overwrites the stored refresh token hash
func (r *mongoUserRepository) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, setFields(bson.M{"refreshToken": tokenHash}))
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}
	return nil
}

// RotateRefreshToken swaps the refresh token hash only if it still equals currentHash
func (r *mongoUserRepository) RotateRefreshToken(ctx context.Context, id, currentHash, nextHash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil || currentHash == "" {
		return ErrTokenMismatch
	}

	filter := bson.M{"_id": oid, "refreshToken": currentHash}
	res, err := r.col.UpdateOne(ctx, filter, setFields(bson.M{"refreshToken": nextHash}))
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrTokenMismatch
	}
	return nil
}

// UpdatePassword stores a new password hash, optionally clearing the refresh token in the same write
func (r *mongoUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, revokeSessions bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	fields := bson.M{"password": passwordHash}
	if revokeSessions {
		fields["refreshToken"] = ""
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, setFields(fields))
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateDetails updates fullname and email and returns the updated user
func (r *mongoUserRepository) UpdateDetails(ctx context.Context, id, fullname, email string) (*domain.User, error) {
	user, err := r.findOneAndSet(ctx, id, bson.M{"fullname": fullname, "email": email})
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("email %s already exists: %w", email, ErrDuplicateUser)
	}
	return user, err
}

// SetImage replaces the avatar or cover image URL
func (r *mongoUserRepository) SetImage(ctx context.Context, id string, kind domain.ImageKind, url string) (*domain.User, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown image kind %q", kind)
	}
	// ImageKind values double as document field names.
	return r.findOneAndSet(ctx, id, bson.M{string(kind): url})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *mongoUserRepository) findOneAndSet(ctx context.Context, id string, fields bson.M) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, setFields(fields), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return doc.toDomain(), nil
}

func setFields(fields bson.M) bson.M {
	fields["updatedAt"] = time.Now().UTC()
	return bson.M{"$set": fields}
}
