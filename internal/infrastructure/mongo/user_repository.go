package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"studytube/backend/internal/apperror"
	domain "studytube/backend/internal/domain/auth"
)

// userDocument is the stored shape of a user.
type userDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Name      string        `bson:"name"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	IsAdmin   bool          `bson:"isAdmin"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func toDocument(u *domain.User) userDocument {
	return userDocument{
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (d userDocument) toUser() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		IsAdmin:      d.IsAdmin,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserRepository persists users in a MongoDB collection with a unique email index.
type UserRepository struct {
	coll *mongo.Collection
}

var _ domain.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a repository over coll.
func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{coll: coll}
}

// Create inserts user and sets its id.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	doc := toDocument(user)
	doc.ID = bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			field, value := duplicateKey(err, "email", user.Email)
			return apperror.Duplicate(field, value, err)
		}
		return oops.Code("USER_CREATE_FAILED").With("email", user.Email).Wrap(err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}}, "email", email)
}

// GetByID fetches a user by its hex ObjectID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.InvalidID("_id", id, err)
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}}, "user_id", id)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D, key, value string) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, oops.Code("USER_QUERY_FAILED").With(key, value).Wrap(err)
	}
	return doc.toUser(), nil
}

var dupKeyPattern = regexp.MustCompile(`dup key: \{ ?"?(\w+)"?: "?([^"}]*?)"? ?\}`)

// duplicateKey extracts the offending field and value from a duplicate key
// error, falling back to the given defaults.
func duplicateKey(err error, field, value string) (string, string) {
	if m := dupKeyPattern.FindStringSubmatch(err.Error()); m != nil {
		return m[1], m[2]
	}
	return field, value
}
