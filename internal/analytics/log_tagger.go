package analytics

import (
	"context"

	"go.uber.org/zap"
)

// LogTagger writes events to a zap logger.
type LogTagger struct {
	logger *zap.Logger
}

// NewLogTagger constructs a LogTagger. A nil logger discards events.
func NewLogTagger(logger *zap.Logger) *LogTagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTagger{logger: logger}
}

// Tag implements Tagger.
func (t *LogTagger) Tag(_ context.Context, event Event) {
	t.logger.Info("analytics event tagged",
		zap.String("event", event.Name),
		zap.String("event_id", event.ID),
		zap.Time("tagged_at", event.TaggedAt),
		zap.Any("attributes", event.Attributes),
	)
}
