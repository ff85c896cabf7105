package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/denizztt/bincard-routes/internal/models"
)

var (
	client     *redis.Client
	clientOnce sync.Once
	clientErr  error
)

// Config holds Redis configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	LegTTL   time.Duration
}

// LoadConfigFromEnv loads Redis configuration from environment variables
func LoadConfigFromEnv() *Config {
	port, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	legTTL, _ := time.ParseDuration(getEnv("CACHE_LEG_TTL", "24h"))

	return &Config{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     port,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
		LegTTL:   legTTL,
	}
}

// GetClient returns the global Redis client (singleton pattern)
func GetClient() (*redis.Client, error) {
	clientOnce.Do(func() {
		config := LoadConfigFromEnv()

		opts := &redis.Options{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Password:     config.Password,
			DB:           config.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		}

		if getEnv("REDIS_TLS_ENABLED", "false") == "true" {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		client = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			clientErr = fmt.Errorf("failed to connect to Redis: %w", err)
			return
		}
	})

	return client, clientErr
}

// Close closes the Redis client
func Close() {
	if client != nil {
		client.Close()
	}
}

// LegKey generates the cache key for a directed station pair
func LegKey(fromStationID, toStationID int64) string {
	return fmt.Sprintf("leg:%d:%d", fromStationID, toStationID)
}

// Legs exposes the leg cache as a planner.LegCache
type Legs struct {
	TTL time.Duration
}

// NewLegs creates a leg cache handle with the configured TTL
func NewLegs() *Legs {
	return &Legs{TTL: LoadConfigFromEnv().LegTTL}
}

// GetLeg retrieves a cached segment for a station pair, nil on miss
func (l *Legs) GetLeg(ctx context.Context, fromStationID, toStationID int64) (*models.Segment, error) {
	client, err := GetClient()
	if err != nil {
		return nil, err
	}

	data, err := client.Get(ctx, LegKey(fromStationID, toStationID)).Bytes()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, err
	}

	var seg models.Segment
	if err := json.Unmarshal(data, &seg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached leg: %w", err)
	}

	return &seg, nil
}

// SetLeg caches a resolved segment for its station pair
func (l *Legs) SetLeg(ctx context.Context, seg models.Segment) error {
	client, err := GetClient()
	if err != nil {
		return err
	}

	data, err := json.Marshal(seg)
	if err != nil {
		return fmt.Errorf("failed to marshal leg: %w", err)
	}

	return client.Set(ctx, LegKey(seg.FromStationID, seg.ToStationID), data, l.TTL).Err()
}

// HealthCheck performs a health check on the Redis connection
func HealthCheck(ctx context.Context) error {
	client, err := GetClient()
	if err != nil {
		return fmt.Errorf("Redis client not initialized: %w", err)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
