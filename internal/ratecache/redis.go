package ratecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/gyeh/remitcheck/internal/model"
)

// RedisStore keeps quotes in Redis so several processes share one cache.
// Quotes are stored as JSON under the key's string form, with decimals as
// strings that keep their scale.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. prefix namespaces every key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis parses a redis:// URL and verifies the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (model.RateQuote, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.RateQuote{}, false, nil
	}
	if err != nil {
		return model.RateQuote{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var w wireQuote
	if err := json.Unmarshal(data, &w); err != nil {
		return model.RateQuote{}, false, fmt.Errorf("decode quote %s: %w", key, err)
	}
	q, err := w.quote()
	if err != nil {
		return model.RateQuote{}, false, fmt.Errorf("decode quote %s: %w", key, err)
	}
	return q, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, q model.RateQuote, ttl time.Duration) error {
	data, err := json.Marshal(toWire(q))
	if err != nil {
		return fmt.Errorf("encode quote %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)

type wireQuote struct {
	ProcedureCode string    `json:"procedure_code"`
	Year          int       `json:"year"`
	Region        string    `json:"region"`
	Payer         string    `json:"payer"`
	BaseRate      string    `json:"base_rate,omitempty"`
	COLAFactor    string    `json:"cola_factor,omitempty"`
	GeoFactor     string    `json:"geo_factor,omitempty"`
	FinalRate     string    `json:"final_rate,omitempty"`
	EffectiveFrom time.Time `json:"effective_from"`
	Found         bool      `json:"found"`
	Reason        string    `json:"reason,omitempty"`
}

func toWire(q model.RateQuote) wireQuote {
	return wireQuote{
		ProcedureCode: q.ProcedureCode,
		Year:          q.Year,
		Region:        q.Region,
		Payer:         q.Payer,
		BaseRate:      encodeDecimal(q.BaseRate),
		COLAFactor:    encodeDecimal(q.COLAFactor),
		GeoFactor:     encodeDecimal(q.GeoFactor),
		FinalRate:     encodeDecimal(q.FinalRate),
		EffectiveFrom: q.EffectiveFrom,
		Found:         q.Found,
		Reason:        q.Reason,
	}
}

func (w wireQuote) quote() (model.RateQuote, error) {
	q := model.RateQuote{
		ProcedureCode: w.ProcedureCode,
		Year:          w.Year,
		Region:        w.Region,
		Payer:         w.Payer,
		EffectiveFrom: w.EffectiveFrom,
		Found:         w.Found,
		Reason:        w.Reason,
	}
	var err error
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&q.BaseRate, w.BaseRate},
		{&q.COLAFactor, w.COLAFactor},
		{&q.GeoFactor, w.GeoFactor},
		{&q.FinalRate, w.FinalRate},
	} {
		if *f.dst, err = decodeDecimal(f.src); err != nil {
			return model.RateQuote{}, err
		}
	}
	return q, nil
}

// encodeDecimal writes every stored digit, so "1.000" stays "1.000".
// The zero value encodes as empty.
func encodeDecimal(d decimal.Decimal) string {
	if d.IsZero() && d.Exponent() == 0 {
		return ""
	}
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func decodeDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, nil
	}
	return decimal.NewFromString(s)
}
