// Package redis provides a Medium on top of a go-redis client.
//
// Redis is shared by every process pointed at it; stash does not coordinate
// those processes. Use KeyPrefix to give each store its own slice of the keyspace.
package redis

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/stash/medium"
)

var ErrNilClient = errors.New("redis medium: nil client")

const defaultScanCount = 256

type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	scanCount   int64
	closeClient bool
}

var _ medium.Medium = (*Redis)(nil)

type Config struct {
	Client goredis.UniversalClient
	// KeyPrefix is prepended to every key on the wire and stripped from Keys.
	KeyPrefix string
	// ScanCount is the COUNT hint used by Keys. Default 256.
	ScanCount   int64
	CloseClient bool // set true only if this medium exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	count := cfg.ScanCount
	if count <= 0 {
		count = defaultScanCount
	}
	return &Redis{
		rdb:         cfg.Client,
		prefix:      cfg.KeyPrefix,
		scanCount:   count,
		closeClient: cfg.CloseClient,
	}, nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, p.prefix+key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

// Set writes without a Redis TTL; expiry lives inside the stored entry.
func (p *Redis) Set(ctx context.Context, key string, value []byte) error {
	return p.rdb.Set(ctx, p.prefix+key, value, 0).Err()
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, p.prefix+key).Err()
}

// Keys walks the keyspace with SCAN. The full key list is collected before
// returning so callers can delete while ranging over it.
func (p *Redis) Keys(ctx context.Context) ([]string, error) {
	match := escapeGlob(p.prefix) + "*"
	var out []string
	iter := p.rdb.Scan(ctx, 0, match, p.scanCount).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), p.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying redis client only when this medium owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
