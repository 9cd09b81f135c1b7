package sink

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperr "github.com/matzehuels/goenrichr/pkg/errors"
	"github.com/matzehuels/goenrichr/pkg/table"
)

// Default MongoDB database and collection names.
const (
	DefaultMongoDatabase   = "goenrichr"
	DefaultMongoCollection = "results"
)

// Inserter is the part of *mongo.Collection the exporter uses.
type Inserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoExporter inserts one document per aggregated row.
type MongoExporter struct {
	Collection Inserter
	client     *mongo.Client
}

// NewMongoExporter connects to uri and targets database.collection.
// Empty names select the defaults.
func NewMongoExporter(ctx context.Context, uri, database, collection string) (*MongoExporter, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "connect mongodb")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperr.Wrap(apperr.ErrCodeNetwork, err, "ping mongodb")
	}
	return &MongoExporter{
		Collection: client.Database(database).Collection(collection),
		client:     client,
	}, nil
}

func (m *MongoExporter) Name() string { return "mongodb" }

// Export inserts the aggregate. An empty aggregate inserts nothing.
func (m *MongoExporter) Export(ctx context.Context, info RunInfo, agg *table.Table) error {
	docs := Documents(info, agg)
	if len(docs) == 0 {
		return nil
	}
	res, err := m.Collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return apperr.Wrap(apperr.ErrCodePersist, err, "insert results")
	}
	if len(res.InsertedIDs) != len(docs) {
		return apperr.New(apperr.ErrCodePersist, "inserted %d of %d results", len(res.InsertedIDs), len(docs))
	}
	return nil
}

// Close disconnects the client opened by [NewMongoExporter].
func (m *MongoExporter) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

// Documents converts the aggregate to MongoDB documents. Each document
// carries run metadata, the source library, and the row's cells keyed by
// column name with numeric cells stored as numbers.
func Documents(info RunInfo, agg *table.Table) []interface{} {
	if agg.Len() == 0 {
		return nil
	}
	dsCol := agg.Index(table.ColDataset)
	docs := make([]interface{}, 0, agg.Len())
	for _, row := range agg.Rows {
		fields := bson.D{}
		for c, col := range agg.Columns {
			if c == dsCol {
				continue
			}
			fields = append(fields, bson.E{Key: col, Value: cellValue(row[c])})
		}
		doc := bson.D{
			{Key: "run_id", Value: info.RunID},
			{Key: "description", Value: info.Description},
			{Key: "created_at", Value: info.StartedAt.UTC()},
			{Key: "row", Value: fields},
		}
		if dsCol >= 0 {
			doc = append(doc, bson.E{Key: "dataset", Value: row[dsCol]})
		}
		docs = append(docs, doc)
	}
	return docs
}
