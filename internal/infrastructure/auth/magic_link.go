package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMagicLinkNotFound is returned when a token is unknown, expired, or
// has already been consumed.
var ErrMagicLinkNotFound = errors.New("magic link token not found or already used")

// MagicLinkStore issues and consumes one-time sign-in tokens.
// A token may be consumed exactly once; a second consume must fail even
// under concurrent requests.
type MagicLinkStore interface {
	// Issue stores a fresh token for the email and returns the token
	// in its URL-safe form.
	Issue(ctx context.Context, email string, ttl time.Duration) (string, error)

	// Consume atomically removes the token and returns the email it
	// was issued for. Returns ErrMagicLinkNotFound for unknown,
	// expired or reused tokens.
	Consume(ctx context.Context, token string) (string, error)
}

// generateToken returns a 256-bit random token, URL-safe encoded
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate magic link token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashToken returns the hex SHA-256 of a token. Only the hash is stored
// so a leaked store dump cannot be replayed as sign-in links.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RedisMagicLinkStore implements MagicLinkStore using Redis.
// Suitable for multi-instance deployments; expiry is handled by key TTL
// and one-time consumption by the atomic GETDEL.
type RedisMagicLinkStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisMagicLinkConfig holds Redis connection configuration
type RedisMagicLinkConfig struct {
	Addr     string // host:port
	Password string
	DB       int
}

// NewRedisMagicLinkStore creates a new Redis-based magic link store
func NewRedisMagicLinkStore(cfg RedisMagicLinkConfig) (*RedisMagicLinkStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis for magic link store: %w", err)
	}

	return &RedisMagicLinkStore{
		client:    client,
		keyPrefix: "auth:magiclink:",
	}, nil
}

// NewRedisMagicLinkStoreWithClient creates a store with an existing Redis client
func NewRedisMagicLinkStoreWithClient(client *redis.Client) *RedisMagicLinkStore {
	return &RedisMagicLinkStore{
		client:    client,
		keyPrefix: "auth:magiclink:",
	}
}

func (s *RedisMagicLinkStore) key(token string) string {
	return s.keyPrefix + hashToken(token)
}

// Issue stores a fresh token for the email
func (s *RedisMagicLinkStore) Issue(ctx context.Context, email string, ttl time.Duration) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, s.key(token), email, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store magic link token: %w", err)
	}

	return token, nil
}

// Consume atomically removes the token and returns its email
func (s *RedisMagicLinkStore) Consume(ctx context.Context, token string) (string, error) {
	email, err := s.client.GetDel(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return "", ErrMagicLinkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume magic link token: %w", err)
	}

	return email, nil
}

// Close closes the Redis client
func (s *RedisMagicLinkStore) Close() error {
	return s.client.Close()
}

// Ensure RedisMagicLinkStore implements MagicLinkStore
var _ MagicLinkStore = (*RedisMagicLinkStore)(nil)

// InMemoryMagicLinkStore provides an in-memory implementation for testing
// WARNING: This should not be used in production with multiple instances
type InMemoryMagicLinkStore struct {
	mu     sync.Mutex
	tokens map[string]memoryEntry // token hash -> entry
}

type memoryEntry struct {
	email     string
	expiresAt time.Time
}

// NewInMemoryMagicLinkStore creates a new in-memory magic link store
func NewInMemoryMagicLinkStore() *InMemoryMagicLinkStore {
	return &InMemoryMagicLinkStore{
		tokens: make(map[string]memoryEntry),
	}
}

// Issue stores a fresh token for the email
func (s *InMemoryMagicLinkStore) Issue(_ context.Context, email string, ttl time.Duration) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[hashToken(token)] = memoryEntry{
		email:     email,
		expiresAt: time.Now().Add(ttl),
	}

	return token, nil
}

// Consume removes the token and returns its email
func (s *InMemoryMagicLinkStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashToken(token)
	entry, exists := s.tokens[key]
	if !exists {
		return "", ErrMagicLinkNotFound
	}
	delete(s.tokens, key)

	if time.Now().After(entry.expiresAt) {
		return "", ErrMagicLinkNotFound
	}

	return entry.email, nil
}

// Ensure InMemoryMagicLinkStore implements MagicLinkStore
var _ MagicLinkStore = (*InMemoryMagicLinkStore)(nil)
