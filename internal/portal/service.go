// Package portal holds the operations shared by the HTML pages and the JSON
// API: OTP login, onboarding listing, progress evaluation, gated field
// updates, notes and ION lookups.
package portal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/cache"
	"github.com/me/partnerportal/internal/catalog"
)

// OTPStore is the subset of the local store used for login throttling.
type OTPStore interface {
	RecordOTPRequest(ctx context.Context, email string, at time.Time) error
	CountOTPRequests(ctx context.Context, email string, since time.Time) (int, error)
	RecordOTPFailure(ctx context.Context, email string, since time.Time) (int, error)
	OTPFailures(ctx context.Context, email string, since time.Time) (int, error)
	ClearOTPChallenges(ctx context.Context, email string) error
}

// Config holds login throttling limits.
type Config struct {
	OTPMaxRequests    int
	OTPWindow         time.Duration
	MaxVerifyAttempts int
}

// DefaultConfig returns the default throttling limits.
func DefaultConfig() Config {
	return Config{
		OTPMaxRequests:    5,
		OTPWindow:         15 * time.Minute,
		MaxVerifyAttempts: 5,
	}
}

// Service implements the portal operations on top of the backend client.
type Service struct {
	backend    *backend.Client
	otp        OTPStore
	cache      *cache.MemoryCache
	normalizer *catalog.Normalizer
	admins     *AdminConfig
	validate   *validator.Validate
	config     Config
	logger     *slog.Logger
	now        func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithCache sets the read cache for ION data and the admin onboarding list.
func WithCache(c *cache.MemoryCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithAdmins sets the configured admin list.
func WithAdmins(a *AdminConfig) Option {
	return func(s *Service) {
		s.admins = a
	}
}

// WithConfig overrides the throttling limits.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// New creates a Service. client must be unauthenticated; per-session
// clients are derived from it with the session's backend token.
func New(client *backend.Client, otp OTPStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		backend:    client,
		otp:        otp,
		normalizer: catalog.NewNormalizer(logger),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		config:     DefaultConfig(),
		logger:     logger.With("component", "portal"),
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.MaxVerifyAttempts <= 0 {
		s.config.MaxVerifyAttempts = DefaultConfig().MaxVerifyAttempts
	}
	if s.config.OTPWindow <= 0 {
		s.config.OTPWindow = DefaultConfig().OTPWindow
	}
	return s
}

// Normalizer returns the manufacturer normalizer used for evaluation.
func (s *Service) Normalizer() *catalog.Normalizer {
	return s.normalizer
}

// clientLock serializes writes for one onboarding record. Locks are kept for
// the life of the process; there is one per client ID ever written, which is
// bounded by the number of onboarding records in the backend.
func (s *Service) clientLock(clientID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[clientID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[clientID] = mu
	}
	return mu
}
