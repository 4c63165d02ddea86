package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "snapshots"

type mongoSnapshot struct {
	Key     string    `bson:"_id"`
	Payload string    `bson:"payload"`
	SavedAt time.Time `bson:"savedAt"`
}

// MongoStore keeps the snapshot as one document whose _id is the key.
type MongoStore struct {
	coll *mongo.Collection
	key  string
}

func NewMongoStore(db *mongo.Database, key string) *MongoStore {
	if key == "" {
		key = DefaultKey
	}
	return &MongoStore{coll: db.Collection(mongoCollection), key: key}
}

func (m *MongoStore) Load(ctx context.Context) (*Snapshot, error) {
	var doc mongoSnapshot
	err := m.coll.FindOne(ctx, bson.M{"_id": m.key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot([]byte(doc.Payload))
}

func (m *MongoStore) Save(ctx context.Context, snap Snapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = m.coll.ReplaceOne(ctx,
		bson.M{"_id": m.key},
		mongoSnapshot{Key: m.key, Payload: string(payload), SavedAt: snap.LastSaved},
		options.Replace().SetUpsert(true),
	)
	return err
}
