package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"apikey-gateway/middleware/apikey/domain"
)

const DefaultMongoCollection = "api_keys"

// MongoStorage guarda os registros como documentos, um por chave, filtrando
// pelo campo "key".
type MongoStorage struct {
	coll *mongo.Collection
	now  func() time.Time
}

type MongoOption func(*mongoOptions)

type mongoOptions struct {
	collection string
}

func WithMongoCollection(name string) MongoOption {
	return func(o *mongoOptions) {
		if name != "" {
			o.collection = name
		}
	}
}

func NewMongoStorage(db *mongo.Database, opts ...MongoOption) *MongoStorage {
	o := mongoOptions{collection: DefaultMongoCollection}
	for _, opt := range opts {
		opt(&o)
	}
	return &MongoStorage{
		coll: db.Collection(o.collection),
		now:  time.Now,
	}
}

// ConnectMongo abre o client e valida a conexão com um ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes cria o índice único em "key". Com ele a unicidade vale mesmo
// quando dois Store concorrentes passam juntos pela pré-checagem.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("key_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongo create index: %w", err)
	}
	return nil
}

func (s *MongoStorage) Store(ctx context.Context, key string, record *domain.APIKey) (string, error) {
	if record == nil {
		return "", domain.NewSerializationError(errNilRecord)
	}

	err := s.coll.FindOne(ctx, bson.M{"key": key}).Err()
	switch {
	case err == nil:
		return "", domain.ErrKeyAlreadyExists
	case !errors.Is(err, mongo.ErrNoDocuments):
		return "", domain.NewStorageFailure(err)
	}

	rec := record.Clone()
	rec.Key = key
	now := s.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", domain.ErrKeyAlreadyExists
		}
		return "", domain.NewStorageFailure(err)
	}
	return key, nil
}

func (s *MongoStorage) Retrieve(ctx context.Context, key string) (*domain.APIKey, error) {
	res := s.coll.FindOne(ctx, bson.M{"key": key})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, domain.NewStorageFailure(err)
	}

	var rec domain.APIKey
	if err := res.Decode(&rec); err != nil {
		return nil, domain.NewSerializationError(err)
	}
	return &rec, nil
}

func (s *MongoStorage) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return false, domain.NewStorageFailure(err)
	}
	return res.DeletedCount > 0, nil
}
