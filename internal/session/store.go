package session

import (
	"context"
	"time"

	"chat-assistant/internal/models"
)

// Store persists sessions between messages. Get reports found=false for
// missing or idle-expired sessions.
type Store interface {
	Get(ctx context.Context, key string) (*models.Session, bool, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, key string) error
}

type Options struct {
	IdleTimeout time.Duration
	MaxEntries  int
	KeyPrefix   string
	Now         func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
