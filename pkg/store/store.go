// Package store archives reduction results in MongoDB so service
// deployments can look up past runs by id or case hash.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/reduce"
)

const collection = "reductions"

// Record is one archived reduction run.
type Record struct {
	RunID     string         `bson:"run_id" json:"run_id"`
	CaseHash  string         `bson:"case_hash" json:"case_hash"`
	Mode      string         `bson:"mode" json:"mode"`
	External  []int          `bson:"external" json:"external"`
	Result    *reduce.Result `bson:"result" json:"result"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

// Store wraps a MongoDB collection of reduction records.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens a MongoDB connection and prepares the reductions
// collection with its indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeServiceUnavailable, err, "connect mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeServiceUnavailable, err, "ping mongodb")
	}

	coll := client.Database(database).Collection(collection)
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "run_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "case_hash", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeServiceUnavailable, err, "create indexes")
	}

	return &Store{client: client, coll: coll}, nil
}

// Save archives a reduction result.
func (s *Store) Save(ctx context.Context, caseHash, mode string, external []int, res *reduce.Result) error {
	rec := Record{
		RunID:     res.RunID,
		CaseHash:  caseHash,
		Mode:      mode,
		External:  external,
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return errors.Wrap(errors.ErrCodeServiceUnavailable, err, "insert record")
	}
	return nil
}

// Get looks up an archived run by its id.
func (s *Store) Get(ctx context.Context, runID string) (*Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"run_id": runID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeInvalidCase, "run %s not found", runID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeServiceUnavailable, err, "find record")
	}
	return &rec, nil
}

// ListByCase returns archived runs for a case, newest first.
func (s *Store) ListByCase(ctx context.Context, caseHash string, limit int64) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.coll.Find(ctx, bson.M{"case_hash": caseHash}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeServiceUnavailable, err, "find records")
	}
	defer cur.Close(ctx)

	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeServiceUnavailable, err, "decode records")
	}
	return recs, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
