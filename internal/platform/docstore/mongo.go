package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one mongo collection per document collection, keyed by _id.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, doc any) error {
	m, err := toBSON(id, doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
		}
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string, out any) error {
	var m bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	data, err := fromBSON(m)
	if err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return Decode(data, out)
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, doc any) error {
	m, err := toBSON(id, doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	res, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, m)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) QueryByField(ctx context.Context, collection, field, value string) ([][]byte, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{field: value}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", collection, field, err)
	}
	var found []bson.M
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}

	docs := make([][]byte, 0, len(found))
	for _, m := range found {
		data, err := fromBSON(m)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		docs = append(docs, data)
	}
	return docs, nil
}

// toBSON round-trips doc through its JSON encoding. Stored field names are
// the JSON tags.
func toBSON(id string, doc any) (bson.M, error) {
	data, err := encode(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.UnmarshalExtJSON(data, false, &m); err != nil {
		return nil, err
	}
	m["_id"] = id
	return m, nil
}

func fromBSON(m bson.M) ([]byte, error) {
	delete(m, "_id")
	return bson.MarshalExtJSON(m, false, false)
}
