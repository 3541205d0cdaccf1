// Package cluster wraps the go-redis client behind the two connection
// shapes the harness needs: a slot-routed client for workload traffic
// and dedicated per-node connections for administrative commands.
// Slot mapping, redirects, and connection pooling stay go-redis's
// concern; callers treat every command as black-box request/response.
package cluster

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client is the slot-routed cluster client the workload drives.
type Client struct {
	rdb *redis.ClusterClient
}

// Open creates a routed client over the given seed addresses. The
// client discovers the rest of the topology on first use.
func Open(seeds []string) *Client {
	return &Client{
		rdb: redis.NewClusterClient(&redis.ClusterOptions{
			Addrs: seeds,
		}),
	}
}

// Ping verifies the client can reach the cluster.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping cluster: %w", err)
	}
	return nil
}

// Set writes value under key with no expiry.
func (c *Client) Set(ctx context.Context, key string, value interface{}) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// GetInt reads key and decodes the value as an integer.
func (c *Client) GetInt(ctx context.Context, key string) (int, error) {
	v, err := c.rdb.Get(ctx, key).Int()
	if err != nil {
		return 0, fmt.Errorf("get %q: %w", key, err)
	}
	return v, nil
}

// GetString reads key as a string.
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return v, nil
}

// Eval runs a server-side script with EVAL.
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	res, err := c.rdb.Eval(ctx, script, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	return res, nil
}

// EvalCached runs a script through the EVALSHA cache, falling back to
// EVAL when the server has not seen the script yet.
func (c *Client) EvalCached(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	res, err := redis.NewScript(script).Run(ctx, c.rdb, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("eval cached script: %w", err)
	}
	return res, nil
}

// Entry is one key/value pair for pipelined writes.
type Entry struct {
	Key   string
	Value string
}

// PipelineSet writes all entries in one pipelined round trip. The
// cluster client splits the pipeline per node when keys map to
// different slots.
func (c *Client) PipelineSet(ctx context.Context, entries []Entry) error {
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, e.Key, e.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pipelined set: %w", err)
	}
	return nil
}

// Close releases the client's connection pools.
func (c *Client) Close() error {
	return c.rdb.Close()
}
