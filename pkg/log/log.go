package log

import (
	contextPkg "LivenessGolang/pkg/context"
	"fmt"
	"golang.org/x/net/context"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

const (
	RequestIDKey = "request_id"
	SessionIDKey = "session_id"
)

type Fields = logrus.Fields

func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetLevel(levelFromEnv())

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        os.Getenv("LOG_NO_COLORS") == "true",
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}

		if os.Getenv("APP_ENV") != "test" {
			fileWriter := &lumberjack.Logger{
				Filename:   fmt.Sprintf("./storage/logs/liveness-%s.log", time.Now().Format("2006-01-02")),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     7,
				MaxBackups: 3,
			}
			writers = append(writers, fileWriter)
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

func levelFromEnv() logrus.Level {
	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func Info(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	NewLogger().WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	NewLogger().WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	NewLogger().WithFields(fields).Error(msg)
}

// ErrorWithTraceID logs msg and returns the trace id attached to the entry.
// A known request id is reused as the trace id.
func ErrorWithTraceID(fields Fields, msg string) string {
	if fields == nil {
		fields = Fields{}
	}

	var traceID string
	if reqID, ok := fields[RequestIDKey].(string); ok && reqID != "" && reqID != "unknown" {
		traceID = reqID
	} else {
		id, err := uuid.NewRandom()
		if err != nil {
			Error(Fields{
				"error": err.Error(),
			}, "[log.ErrorWithTraceID] failed to generate trace ID")
			traceID = "unknown"
		} else {
			traceID = id.String()
		}
	}

	fields["trace_id"] = traceID
	NewLogger().WithFields(fields).Error(msg)

	return traceID
}

func Fatal(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	NewLogger().WithFields(fields).Fatal(msg)
}

// WithContext returns an entry carrying the request and session ids stored
// on ctx. A nil base falls back to the process logger.
func WithContext(base *logrus.Logger, ctx context.Context) *logrus.Entry {
	if base == nil {
		base = NewLogger()
	}

	requestID, sessionID := "unknown", "unknown"
	if ctx != nil {
		requestID = contextPkg.GetRequestID(ctx)
		sessionID = contextPkg.GetSessionID(ctx)
	}

	return base.WithFields(logrus.Fields{
		RequestIDKey: requestID,
		SessionIDKey: sessionID,
	})
}
