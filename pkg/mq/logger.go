package mq

// Logger receives request and response traces while debug output is on.
type Logger interface {
	DebugObj(msg, key string, obj any)
}

type discardLogger struct{}

func (discardLogger) DebugObj(string, string, any) {}
