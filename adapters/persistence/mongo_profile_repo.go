package persistence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/internal/domain/profile"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type profileDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Email      string             `bson:"email"`
	Username   string             `bson:"username"`
	FirstName  string             `bson:"firstName"`
	LastName   string             `bson:"lastName"`
	Pronouns   *string            `bson:"pronouns,omitempty"`
	Occupation *string            `bson:"occupation,omitempty"`
	Bio        *string            `bson:"bio,omitempty"`
}

func (d profileDocument) toDomain() *profile.Profile {
	return &profile.Profile{
		Email:      d.Email,
		Username:   d.Username,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Pronouns:   d.Pronouns,
		Occupation: d.Occupation,
		Bio:        d.Bio,
	}
}

type mongoProfileRepo struct {
	coll   *mongo.Collection
	logger logger.Logger
}

func NewMongoProfileRepo(db *mongo.Database, logger logger.Logger) profile.Repository {
	return &mongoProfileRepo{coll: db.Collection(CollectionProfiles), logger: logger}
}

func (r *mongoProfileRepo) Insert(ctx context.Context, p *profile.Profile) (string, error) {
	doc := profileDocument{
		ID:         primitive.NewObjectID(),
		Email:      p.Email,
		Username:   p.Username,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Pronouns:   p.Pronouns,
		Occupation: p.Occupation,
		Bio:        p.Bio,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperror.NewDuplicateKey("profile", p.Email, err)
		}
		return "", apperror.NewStorage("this did not work", err)
	}
	return doc.ID.Hex(), nil
}

func (r *mongoProfileRepo) FindByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	var doc profileDocument
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("profile", email)
		}
		return nil, apperror.NewStorage("failed to query profile", err)
	}
	return doc.toDomain(), nil
}

// UpdateByEmail replaces the mutable fields. Optional fields that are absent
// are unset so they read back as absent, not as empty strings.
func (r *mongoProfileRepo) UpdateByEmail(ctx context.Context, p *profile.Profile) (profile.UpdateResult, error) {
	set := bson.M{
		"username":  p.Username,
		"firstName": p.FirstName,
		"lastName":  p.LastName,
	}
	unset := bson.M{}
	optional := map[string]*string{
		"pronouns":   p.Pronouns,
		"occupation": p.Occupation,
		"bio":        p.Bio,
	}
	for field, v := range optional {
		if v == nil {
			unset[field] = ""
			continue
		}
		set[field] = *v
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"email": p.Email}, update)
	if err != nil {
		return profile.UpdateResult{}, apperror.NewStorage("error has occured when updating document in database", err)
	}
	if res.MatchedCount == 0 {
		r.logger.Warn("Profile update matched no document", zap.String("email", p.Email))
	}
	return profile.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}
