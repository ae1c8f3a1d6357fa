package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type fieldReportDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	SessionID    string             `bson:"sessionID"`
	FieldReports string             `bson:"fieldReports"`
	Time         time.Time          `bson:"time"`
}

type mongoFieldReportRepo struct {
	coll   *mongo.Collection
	logger logger.Logger
}

func NewMongoFieldReportRepo(db *mongo.Database, logger logger.Logger) fieldreport.Repository {
	return &mongoFieldReportRepo{coll: db.Collection(CollectionFieldReports), logger: logger}
}

func keyFilter(key fieldreport.Key) bson.M {
	return bson.M{"username": key.Username, "sessionID": key.SessionID}
}

func (r *mongoFieldReportRepo) Find(ctx context.Context, key fieldreport.Key) (*fieldreport.FieldReport, error) {
	var doc fieldReportDocument
	err := r.coll.FindOne(ctx, keyFilter(key)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("field report", key.String())
		}
		return nil, apperror.NewStorage("failed to query field report", err)
	}
	return &fieldreport.FieldReport{
		Username:     doc.Username,
		SessionID:    doc.SessionID,
		FieldReports: doc.FieldReports,
		Time:         doc.Time.UTC(),
	}, nil
}

func (r *mongoFieldReportRepo) Insert(ctx context.Context, fr *fieldreport.FieldReport) error {
	doc := fieldReportDocument{
		ID:           primitive.NewObjectID(),
		Username:     fr.Username,
		SessionID:    fr.SessionID,
		FieldReports: fr.FieldReports,
		Time:         fr.Time,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.NewDuplicateKey("field report", fr.Key().String(), err)
		}
		return apperror.NewStorage("failed to insert field report", err)
	}
	return nil
}

func (r *mongoFieldReportRepo) Update(ctx context.Context, fr *fieldreport.FieldReport) error {
	update := bson.M{"$set": bson.M{"fieldReports": fr.FieldReports, "time": fr.Time}}
	res, err := r.coll.UpdateOne(ctx, keyFilter(fr.Key()), update)
	if err != nil {
		return apperror.NewStorage("failed to update field report", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("field report", fr.Key().String())
	}
	return nil
}

// Upsert relies on the unique key index. Two concurrent upserts of a new key
// can both try to insert; the loser gets E11000 and is retried once, at which
// point the document exists and the retry is a plain update.
func (r *mongoFieldReportRepo) Upsert(ctx context.Context, fr *fieldreport.FieldReport) (bool, error) {
	update := bson.M{"$set": bson.M{"fieldReports": fr.FieldReports, "time": fr.Time}}
	opts := options.Update().SetUpsert(true)

	res, err := r.coll.UpdateOne(ctx, keyFilter(fr.Key()), update, opts)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		r.logger.Warn("Upsert lost insert race, retrying", zap.String("key", fr.Key().String()))
		res, err = r.coll.UpdateOne(ctx, keyFilter(fr.Key()), update, opts)
	}
	if err != nil {
		return false, apperror.NewStorage("failed to upsert field report", err)
	}
	return res.UpsertedCount > 0, nil
}
