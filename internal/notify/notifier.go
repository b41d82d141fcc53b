// Package notify delivers alert messages. Messages longer than the
// transport limit are split into ordered chunks; individual sender failures
// are logged and combined, never panicking the run.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers a single message chunk.
	Send(ctx context.Context, text string) error
	// Name identifies the channel in logs.
	Name() string
}

// Notifier dispatches a message to all senders, chunking it first.
type Notifier struct {
	senders    []Sender
	chunkSize  int
	chunkPause time.Duration
	logger     *zap.Logger
}

// NewNotifier builds a Notifier. chunkSize is measured in runes; chunkPause
// is the delay between consecutive chunks of one message.
func NewNotifier(senders []Sender, chunkSize int, chunkPause time.Duration, logger *zap.Logger) *Notifier {
	if chunkSize <= 0 {
		chunkSize = 4000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		senders:    senders,
		chunkSize:  chunkSize,
		chunkPause: chunkPause,
		logger:     logger,
	}
}

// Send delivers the message through every sender. A failing sender does not
// block the others; all failures are combined into one error.
func (n *Notifier) Send(ctx context.Context, message string) error {
	if len(n.senders) == 0 {
		n.logger.Warn("no notification senders configured, skipping")
		return nil
	}

	chunks := SplitMessage(message, n.chunkSize)

	var errs []string
	for _, s := range n.senders {
		if err := n.sendChunks(ctx, s, chunks); err != nil {
			n.logger.Warn("sender failed", zap.String("sender", s.Name()), zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.Info("notification sent", zap.String("sender", s.Name()), zap.Int("chunks", len(chunks)))
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func (n *Notifier) sendChunks(ctx context.Context, s Sender, chunks []string) error {
	for i, chunk := range chunks {
		if i > 0 && n.chunkPause > 0 {
			timer := time.NewTimer(n.chunkPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := s.Send(ctx, chunk); err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// SplitMessage cuts text into chunks of at most size runes, preserving
// order. Multi-byte text is never split mid-rune.
func SplitMessage(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
