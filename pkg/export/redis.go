package export

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/dmtools/sqlog2db/pkg/config"
	"github.com/dmtools/sqlog2db/pkg/sqllog"
)

// Redis appends records to a Redis stream (XADD), one pipelined command per
// record.
type Redis struct {
	cfg    config.RedisExporter
	client *redis.Client
	stats  Stats
}

// NewRedis creates a Redis Streams sink.
func NewRedis(cfg config.RedisExporter) *Redis {
	return &Redis{cfg: cfg}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Initialize(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr: r.cfg.Addr,
		DB:   r.cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping %s: %w", r.cfg.Addr, err)
	}
	r.client = client
	return nil
}

func (r *Redis) ExportBatch(ctx context.Context, recs []sqllog.Record) error {
	pipe := r.client.Pipeline()
	for i := range recs {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.cfg.Stream,
			MaxLen: r.cfg.MaxLen,
			Approx: r.cfg.MaxLen > 0,
			Values: streamValues(&recs[i]),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.stats.Failed += int64(len(recs))
		return fmt.Errorf("xadd %d records to %s: %w", len(recs), r.cfg.Stream, err)
	}
	r.stats.recordBatch(len(recs))
	return nil
}

func (r *Redis) Finalize(_ context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *Redis) Stats() Stats { return r.stats }

func streamValues(rec *sqllog.Record) map[string]any {
	values := map[string]any{
		"ts":        rec.TS,
		"ep":        strconv.Itoa(int(rec.EP)),
		"sess_id":   rec.SessID,
		"thrd_id":   rec.ThrdID,
		"username":  rec.Username,
		"trx_id":    rec.TrxID,
		"statement": rec.Statement,
		"appname":   rec.AppName,
		"client_ip": rec.ClientIP,
		"sql":       rec.SQL,
	}
	if rec.ExecTimeMS != nil {
		values["exec_time_ms"] = strconv.FormatFloat(*rec.ExecTimeMS, 'f', -1, 64)
	}
	if rec.RowCount != nil {
		values["row_count"] = strconv.FormatUint(uint64(*rec.RowCount), 10)
	}
	if rec.ExecID != nil {
		values["exec_id"] = strconv.FormatInt(*rec.ExecID, 10)
	}
	return values
}
