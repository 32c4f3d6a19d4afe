package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds JSON-encodable read models (calendar months, dashboard figures)
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

const DefaultExpiry = 15 * time.Minute

// CalendarKey is the cache key for one stored month
func CalendarKey(month string, year int) string {
	return fmt.Sprintf("calendar:%s:%d", month, year)
}

// DashboardKey is the cache key for the dashboard figures of one month
func DashboardKey(month string, year int) string {
	return fmt.Sprintf("dashboard:%s:%d", month, year)
}

// entry is the on-disk envelope
type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// FileCache keeps one JSON file per key in a directory
type FileCache struct {
	dir    string
	expiry time.Duration
	now    func() time.Time
}

func NewFileCache(dir string, expiry time.Duration) (*FileCache, error) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{dir: dir, expiry: expiry, now: time.Now}, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

// Get loads a cached value if it exists and is not expired
func (c *FileCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	e, err := c.read(key)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		fmt.Printf("❌ Error reading cache file for %s: %v\n", key, err)
		return false, nil
	}

	age := c.now().Sub(e.Timestamp)
	if age > c.expiry {
		fmt.Printf("⏰ Cache for %s expired (%v old), will refresh\n", key, age.Round(time.Second))
		return false, nil
	}

	if err := json.Unmarshal(e.Data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set writes value to the key's cache file
func (c *FileCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	file, err := os.Create(c.path(key))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(entry{Data: data, Timestamp: c.now()}); err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	return nil
}

func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

// Age returns how old the cached value for key is
func (c *FileCache) Age(key string) (time.Duration, error) {
	e, err := c.read(key)
	if err != nil {
		return 0, err
	}
	return c.now().Sub(e.Timestamp), nil
}

func (c *FileCache) read(key string) (*entry, error) {
	file, err := os.Open(c.path(key))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var e entry
	if err := json.NewDecoder(file).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// RedisCache stores values as JSON strings with a TTL
type RedisCache struct {
	client *redis.Client
	expiry time.Duration
}

func NewRedisCache(addr, password string, expiry time.Duration) *RedisCache {
	if addr == "" {
		addr = "localhost:6379"
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	return &RedisCache{client: client, expiry: expiry}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(data), dest)
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.expiry).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
