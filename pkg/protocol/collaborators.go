package protocol

import (
	"context"
	"time"
)

// Mailer delivers notification email through the external mail
// collaborator. The core never speaks SMTP itself.
type Mailer interface {
	SendNotificationEmail(ctx context.Context, to, kind, body, senderName string) (messageID string, err error)
}

// Claims is the normalized decoded session this core consumes.
type Claims struct {
	UserID    string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

// TokenVerifier validates a session token's signature and expiry and
// returns its decoded claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// TokenBlacklist answers whether a token has been revoked.
type TokenBlacklist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// UserStore confirms a user still exists and is verified. Backing data
// lives with the auth collaborator.
type UserStore interface {
	UserVerified(ctx context.Context, userID string) (bool, error)
}

// Summarizer condenses text through an external model provider.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxWords int) (string, error)
}
