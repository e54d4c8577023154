package ports

import "context"

// Logger is the structured logging port used by every component.
// Fields are optional key/value maps merged into the log entry.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs err together with a human-readable message.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
