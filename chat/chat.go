package chat

import (
	"context"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// defaultBuffer bounds how many not-yet-credited messages a burst can bank.
const defaultBuffer = 256

// Source buffers chat messages from a Twitch channel and exposes them one at
// a time through Poll. It satisfies the scoring engine's interaction source.
type Source struct {
	channel string
	client  *twitch.Client
	events  chan struct{}
}

// NewSource builds a Source for channel. Empty username or token selects an
// anonymous read-only IRC connection.
func NewSource(channel, username, token string) *Source {
	var client *twitch.Client
	if username == "" || token == "" {
		client = twitch.NewAnonymousClient()
	} else {
		client = twitch.NewClient(username, token)
	}
	s := &Source{
		channel: channel,
		client:  client,
		events:  make(chan struct{}, defaultBuffer),
	}
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		select {
		case s.events <- struct{}{}:
		default:
			// Buffer full; the burst is already worth more ticks than the
			// engine will run before draining, drop the overflow.
		}
	})
	return s
}

// Poll reports whether a chat message arrived since the last credited one.
// Non-blocking; at most one buffered message is consumed per call.
func (s *Source) Poll() bool {
	select {
	case <-s.events:
		return true
	default:
		return false
	}
}

// Run connects to Twitch IRC and blocks until ctx is cancelled or the
// connection fails.
func (s *Source) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := s.client.Disconnect(); err != nil {
			slog.Warn("twitch chat disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	s.client.Join(s.channel)
	slog.Info("twitch chat source connecting", slog.String("channel", s.channel))
	if err := s.client.Connect(); err != nil {
		select {
		case <-ctx.Done():
			// Disconnect during shutdown surfaces as a connect error.
		default:
			slog.Error("twitch chat connect error", slog.Any("err", err))
			return err
		}
	}
	<-done
	return nil
}
