package store

import (
	"context"
	"time"

	"github.com/me/partnerportal/pkg/model"
)

// Store defines the local persistence layer of the portal. Business data
// lives in the remote backend; only sessions and OTP throttling state are
// kept here.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	DeleteSessionsByEmail(ctx context.Context, email string) (int64, error)

	// OTP challenges
	RecordOTPRequest(ctx context.Context, email string, at time.Time) error
	CountOTPRequests(ctx context.Context, email string, since time.Time) (int, error)
	RecordOTPFailure(ctx context.Context, email string, since time.Time) (int, error)
	OTPFailures(ctx context.Context, email string, since time.Time) (int, error)
	ClearOTPChallenges(ctx context.Context, email string) error
	DeleteStaleOTPChallenges(ctx context.Context, before time.Time) (int64, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
