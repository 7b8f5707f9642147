package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidhub/account-service/internal/core/domain"
	"github.com/vidhub/account-service/internal/core/ports"
)

const accountsCollection = "users"

// AccountRepository implements ports.AccountRepository using MongoDB.
type AccountRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountsCollection), now: time.Now}
}

type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	FullName     string             `bson:"fullName"`
	Avatar       string             `bson:"avatar"`
	CoverImage   string             `bson:"coverImage"`
	Password     string             `bson:"password"`
	RefreshToken *string            `bson:"refreshToken,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (m *mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:                  m.ID.Hex(),
		Username:            m.Username,
		Email:               m.Email,
		FullName:            m.FullName,
		PasswordHash:        m.Password,
		AvatarURL:           m.Avatar,
		CoverImageURL:       m.CoverImage,
		CurrentRefreshToken: m.RefreshToken,
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := r.now().UTC()
	doc := mongoAccount{
		Username:     account.Username,
		Email:        account.Email,
		FullName:     account.FullName,
		Avatar:       account.AvatarURL,
		CoverImage:   account.CoverImageURL,
		Password:     account.PasswordHash,
		RefreshToken: account.CurrentRefreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert account: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.Account, error) {
	var or bson.A
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if len(or) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"$or": or})
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

// UpdateRefreshToken sets the token, or unsets the field when token is nil.
func (r *AccountRepository) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := r.now().UTC()
	var update bson.M
	if token == nil {
		update = bson.M{
			"$unset": bson.M{"refreshToken": ""},
			"$set":   bson.M{"updatedAt": now},
		}
	} else {
		update = bson.M{"$set": bson.M{"refreshToken": *token, "updatedAt": now}}
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// SwapRefreshToken filters on the expected token so the check and the write
// happen in a single atomic document update.
func (r *AccountRepository) SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	if expected == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "refreshToken": expected}
	update := bson.M{"$set": bson.M{"refreshToken": next, "updatedAt": r.now().UTC()}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// EnsureIndexes creates the unique natural-key indexes on the users collection.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "fullName", Value: 1}}, Options: options.Index().SetName("idx_full_name")},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
