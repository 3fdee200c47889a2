package notify

import (
	"context"
	"errors"
	"log/slog"

	"caterly/internal/metrics"
)

// FallbackEmailSender tries Primary and, when it fails, Fallback.
type FallbackEmailSender struct {
	Primary  EmailSender
	Fallback EmailSender
}

func (s *FallbackEmailSender) Name() string {
	return s.Primary.Name() + "+" + s.Fallback.Name()
}

func (s *FallbackEmailSender) Send(ctx context.Context, e Email) error {
	err := s.Primary.Send(ctx, e)
	metrics.RecordNotification(ChannelEmail, s.Primary.Name(), err)
	if err == nil || errors.Is(err, ErrNoRecipient) {
		return err
	}
	slog.Warn("primary email provider failed, trying fallback",
		"primary", s.Primary.Name(), "fallback", s.Fallback.Name(), "error", err)

	ferr := s.Fallback.Send(ctx, e)
	metrics.RecordNotification(ChannelEmail, s.Fallback.Name(), ferr)
	if ferr != nil {
		return errors.Join(err, ferr)
	}
	return nil
}

// Record wraps a single sender so its outcomes are counted like the
// fallback chain's.
func Record(s EmailSender) EmailSender {
	if _, ok := s.(*FallbackEmailSender); ok {
		return s
	}
	return recorded{s}
}

type recorded struct {
	EmailSender
}

func (r recorded) Send(ctx context.Context, e Email) error {
	err := r.EmailSender.Send(ctx, e)
	metrics.RecordNotification(ChannelEmail, r.Name(), err)
	return err
}
