package telemetry

import (
	"context"
	"time"
)

// Streamer drives a Builder against a sink at the scheduler granularity.
type Streamer struct {
	builder *Builder
	now     func() time.Time
}

// NewStreamer wraps a builder for one consumer.
func NewStreamer(builder *Builder) *Streamer {
	return &Streamer{builder: builder, now: time.Now}
}

// Run emits frames until the sink errors or ctx is cancelled. A send error
// ends the stream; the caller owns any cleanup for its connection.
func (s *Streamer) Run(ctx context.Context, send func(Frame) error) error {
	granularity := s.builder.Granularity()
	for {
		if err := send(s.builder.Next(s.now())); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(granularity):
		}
	}
}
