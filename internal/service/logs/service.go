// Package logs stores client log records as JSON objects in a bucket.
package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/packup/internal/infra/objectstore"
)

var ErrEmptyRecord = errors.New("log record required")

const DefaultPrefix = "app"

type Service struct {
	store  objectstore.Store
	prefix string
	now    func() time.Time
}

// New creates the service. An empty prefix means DefaultPrefix.
func New(store objectstore.Store, prefix string) *Service {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Service{store: store, prefix: prefix, now: time.Now}
}

// Key returns <prefix>/<YYYY-MM-DD>/<unix ms>-<rand>.json for t.
func Key(prefix string, t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("%s/%s/%d-%s.json", prefix, t.UTC().Format("2006-01-02"), t.UnixMilli(), suffix)
}

// Ingest writes record with a ts field added and returns its key. A ts
// sent by the client is overwritten.
func (s *Service) Ingest(ctx context.Context, record map[string]any) (string, error) {
	if len(record) == 0 {
		return "", ErrEmptyRecord
	}
	now := s.now()

	body := make(map[string]any, len(record)+1)
	for k, v := range record {
		body[k] = v
	}
	body["ts"] = now.UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode log record: %w", err)
	}

	key := Key(s.prefix, now)
	if err := s.store.Put(ctx, key, data, "application/json"); err != nil {
		return "", fmt.Errorf("store log record: %w", err)
	}
	return key, nil
}
