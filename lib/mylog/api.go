package mylog

import (
	"context"
	"os"
	"strings"
)

type Severity string

const (
	SeverityDebug Severity = "DEBUG"
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

var severityRank = map[Severity]int{
	SeverityDebug: 0,
	SeverityInfo:  1,
	SeverityWarn:  2,
	SeverityError: 3,
}

// New creates a logger for the given component. The implementation depends on the environment.
var New func(name string) Logger

type Logger interface {
	Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any)
}

// enabled reports whether records of the given severity pass the LOG_LEVEL threshold
func enabled(severity Severity) bool {
	threshold, found := severityRank[Severity(strings.ToUpper(os.Getenv("LOG_LEVEL")))]
	if !found {
		threshold = severityRank[SeverityDebug]
	}
	return severityRank[severity] >= threshold
}
