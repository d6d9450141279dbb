package publishers

import "context"

// Publisher delivers forwarded queue messages to a downstream sink (HTTP, SQS, SNS, Pub/Sub).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// closer is implemented by publishers holding client resources.
type closer interface {
	Close() error
}

// Logger is what sinks report deliveries and failures through.
type Logger interface {
	DebugObj(msg, key string, obj any)
	ErrorObj(msg, key string, obj any)
}

type nopLogger struct{}

func (nopLogger) DebugObj(string, string, any) {}
func (nopLogger) ErrorObj(string, string, any) {}

func loggerOrNop(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}
