package config

import "time"

const (
	// Database drivers
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"

	// Customer name limits
	MaxCustomerNameLen = 255

	// ISO 4217 code length
	CurrencyCodeLen = 3

	// NUMERIC(12,2)
	AmountScale = 2

	// Upper bound for a single NUMERIC(12,2) value
	MaxAmount = "9999999999.99"

	// HTTP server timeouts
	ReadHeaderTimeout = 5 * time.Second
	RequestTimeout    = 30 * time.Second

	// Request body limit for JSON payloads
	MaxRequestBodyBytes = 1 << 20

	// Idempotency-Key in-flight lock
	IdempotencyLockTTL = time.Minute

	// Rate limit window
	RateLimitWindow = time.Minute

	// RabbitMQ publisher confirm timeout
	PublishConfirmTimeout = 5 * time.Second

	// Scheduler locks
	OverdueRunLockTTL = 50 * time.Minute
	OverdueDedupeTTL  = 48 * time.Hour
	PruneRunLockTTL   = 23 * time.Hour

	// Telegram message limit
	MaxTelegramMessageLen = 4096

	// Default seed file for the seed command
	DefaultSeedFile = "seed-data.json"
)
