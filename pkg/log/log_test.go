package log

import (
	contextPkg "LivenessGolang/pkg/context"
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithContext(t *testing.T) {
	base := logrus.New()
	base.SetOutput(io.Discard)

	ctx := contextPkg.WithSessionID(contextPkg.WithRequestID(context.Background(), "req-9"), "sess-9")
	entry := WithContext(base, ctx)
	if entry.Data[RequestIDKey] != "req-9" || entry.Data[SessionIDKey] != "sess-9" {
		t.Errorf("fields = %v", entry.Data)
	}
	if entry.Logger != base {
		t.Error("entry not bound to the given logger")
	}

	entry = WithContext(base, context.Background())
	if entry.Data[RequestIDKey] != "unknown" || entry.Data[SessionIDKey] != "unknown" {
		t.Errorf("fields without ids = %v", entry.Data)
	}
}
