package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/pvewatch/pvewatch/pkg/logger"
)

// Service fans a notification out to every configured channel. With no
// channels configured, delivery is disabled and Send is a logged no-op;
// collection and evaluation are unaffected by that.
type Service struct {
	channels []Channel
	logger   *logger.Logger
}

func NewService(logger *logger.Logger, channels ...Channel) *Service {
	return &Service{
		channels: channels,
		logger:   logger,
	}
}

// Enabled reports whether any delivery channel is configured.
func (s *Service) Enabled() bool {
	return len(s.channels) > 0
}

// Send delivers n to all channels. Every channel is attempted even when an
// earlier one fails; the combined failure is returned for the caller to log.
func (s *Service) Send(ctx context.Context, n Notification) error {
	if !s.Enabled() {
		s.logger.Debug("Notification delivery disabled, dropping message", "title", n.Title)
		return nil
	}

	var failures []string
	for _, channel := range s.channels {
		if err := channel.Send(ctx, n); err != nil {
			s.logger.Warn("Notification delivery failed", "channel", channel.Name(), "title", n.Title, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", channel.Name(), err))
			continue
		}
		s.logger.Debug("Notification delivered", "channel", channel.Name(), "title", n.Title)
	}

	if len(failures) > 0 {
		return fmt.Errorf("delivery failed on %d of %d channels: %s",
			len(failures), len(s.channels), strings.Join(failures, "; "))
	}
	return nil
}
