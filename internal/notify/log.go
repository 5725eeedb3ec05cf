package notify

import (
	"context"
	"log/slog"
)

// Log writes notifications to the log instead of a broker. It keeps local
// development and demo environments working without Kafka.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SendDirect(ctx context.Context, userID int64, text string) error {
	l.logger.InfoContext(ctx, "notification (direct)", "user_id", userID, "text", text)
	return nil
}

func (l *Log) SendChannel(ctx context.Context, channelID int64, text string) error {
	l.logger.InfoContext(ctx, "notification (channel)", "channel_id", channelID, "text", text)
	return nil
}
