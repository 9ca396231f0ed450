package export

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmtools/sqlog2db/pkg/config"
	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

// Mongo writes records to a MongoDB collection with one InsertMany per
// batch.
type Mongo struct {
	cfg    config.MongoExporter
	client *mongo.Client
	coll   *mongo.Collection
	stats  Stats
}

// NewMongo creates a MongoDB sink.
func NewMongo(cfg config.MongoExporter) *Mongo {
	return &Mongo{cfg: cfg}
}

func (m *Mongo) Name() string { return "mongo" }

func (m *Mongo) Initialize(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.cfg.URI))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.cfg.URI, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return fmt.Errorf("ping %s: %w", m.cfg.URI, err)
	}

	m.client = client
	m.coll = client.Database(m.cfg.Database).Collection(m.cfg.Collection)
	return nil
}

func (m *Mongo) ExportBatch(ctx context.Context, recs []sqllog.Record) error {
	docs := make([]any, len(recs))
	for i := range recs {
		docs[i] = mongoDoc(&recs[i])
	}

	// Unordered inserts keep going past per-document failures.
	res, err := m.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if res != nil {
		m.stats.Exported += int64(len(res.InsertedIDs))
		m.stats.Flushes++
		m.stats.LastFlush = len(res.InsertedIDs)
	}
	if err != nil {
		m.stats.Failed += int64(len(recs)) - int64(len(resIDs(res)))
		return fmt.Errorf("insert %d records: %w", len(recs), err)
	}
	return nil
}

func (m *Mongo) Finalize(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Stats() Stats { return m.stats }

func mongoDoc(r *sqllog.Record) bson.M {
	doc := bson.M{
		"ts":        r.TS,
		"ep":        int32(r.EP),
		"sess_id":   r.SessID,
		"thrd_id":   r.ThrdID,
		"username":  r.Username,
		"trx_id":    r.TrxID,
		"statement": r.Statement,
		"appname":   r.AppName,
		"client_ip": r.ClientIP,
		"sql":       r.SQL,
	}
	if r.ExecTimeMS != nil {
		doc["exec_time_ms"] = *r.ExecTimeMS
	}
	if r.RowCount != nil {
		doc["row_count"] = int64(*r.RowCount)
	}
	if r.ExecID != nil {
		doc["exec_id"] = *r.ExecID
	}
	return doc
}

func resIDs(res *mongo.InsertManyResult) []any {
	if res == nil {
		return nil
	}
	return res.InsertedIDs
}
