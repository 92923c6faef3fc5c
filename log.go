package ballast

import (
	"fmt"
	"strings"

	mlog "mosn.io/pkg/log"
)

// NewFileLog creates a logger writing to path, "stdout" and "stderr" are accepted.
func NewFileLog(path string, level mlog.Level) (mlog.ErrorLogger, error) {
	logger, err := mlog.GetOrCreateLogger(path, nil)
	if err != nil {
		return nil, fmt.Errorf("create logger %s: %w", path, err)
	}
	return &mlog.SimpleErrorLog{
		Logger: logger,
		Level:  level,
	}, nil
}

// NewStdLogger create a logger which writes to stdout
func NewStdLogger() mlog.ErrorLogger {
	l, err := NewFileLog("stdout", mlog.INFO)
	if err != nil {
		// stdout is always available
		panic(err)
	}
	return l
}

// ParseLevel maps a level name to a mosn log level.
func ParseLevel(name string) (mlog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return mlog.TRACE, nil
	case "debug":
		return mlog.DEBUG, nil
	case "", "info":
		return mlog.INFO, nil
	case "warn", "warning":
		return mlog.WARN, nil
	case "error":
		return mlog.ERROR, nil
	case "fatal":
		return mlog.FATAL, nil
	}
	return mlog.INFO, fmt.Errorf("unknown log level %q", name)
}
