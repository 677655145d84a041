package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

// CustodyStore is a domain.CustodyStore on a MongoDB collection.
type CustodyStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ domain.CustodyStore = (*CustodyStore)(nil)

// Open connects to uri and prepares the collection.
func Open(ctx context.Context, uri, dbName, collName string) (*CustodyStore, error) {
	if uri == "" {
		return nil, failure.InvalidArg("mongo uri is empty")
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongostore.Open.Connect")
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, errors.Wrap(err, "mongostore.Open.Ping")
	}

	coll := cli.Database(dbName).Collection(collName)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "device_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		_ = cli.Disconnect(ctx)
		return nil, errors.Wrap(err, "mongostore.Open.Indexes")
	}
	return &CustodyStore{client: cli, coll: coll}, nil
}

// StoreEncryptedPrivateKeys inserts b. A bundle for the same device already
// present is ALREADY_EXISTS.
func (s *CustodyStore) StoreEncryptedPrivateKeys(ctx context.Context, b domain.EncryptedPrivateKeyBundle) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := s.coll.InsertOne(ctx, toDoc(b))
	if mongo.IsDuplicateKeyError(err) {
		return failure.Wrap(failure.ReasonAlreadyExists, "custody bundle is write-once", err)
	}
	return errors.Wrap(err, "mongostore.StoreEncryptedPrivateKeys.Insert")
}

// LoadEncryptedPrivateKeys returns the user's bundles newest first.
func (s *CustodyStore) LoadEncryptedPrivateKeys(ctx context.Context, userID domain.UserID) ([]domain.EncryptedPrivateKeyBundle, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"user_id": userID.String()},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "mongostore.LoadEncryptedPrivateKeys.Find")
	}
	defer cur.Close(ctx)

	var out []domain.EncryptedPrivateKeyBundle
	for cur.Next(ctx) {
		var doc custodyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "mongostore.LoadEncryptedPrivateKeys.Decode")
		}
		b, err := doc.toDomain()
		if err != nil {
			return nil, errors.Wrap(err, "mongostore.LoadEncryptedPrivateKeys.Convert")
		}
		out = append(out, b)
	}
	return out, errors.Wrap(cur.Err(), "mongostore.LoadEncryptedPrivateKeys.Cursor")
}

// Close disconnects the client.
func (s *CustodyStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
