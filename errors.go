package sgengine

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"
)

// ErrorHandler reacts to an engine-level error observed on the control
// thread — a rejected graph edit, a full garbage chute, a compile
// failure.
type ErrorHandler interface {
	HandleError(component string, err error)
}

// DefaultErrorHandler discards every error, for callers that read
// SubmitGraph's own return value and don't need a second notification
// path.
type DefaultErrorHandler struct{}

func (DefaultErrorHandler) HandleError(string, error) {}

// LoggingErrorHandler logs every error at warn level, tagged with the
// reporting component.
type LoggingErrorHandler struct {
	Logger *log.Logger
}

func (h LoggingErrorHandler) HandleError(component string, err error) {
	logger := h.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Warn("engine error", "component", component, "error", err)
}

// PanicErrorHandler panics on every error, for tests and development
// builds that prefer to fail fast over silently degrading.
type PanicErrorHandler struct{}

func (PanicErrorHandler) HandleError(component string, err error) {
	panic(fmt.Sprintf("sgengine: %s: %v", component, err))
}

// SentryErrorHandler reports every error to Sentry, tagged with the
// reporting component, for production deployments that want crash/error
// telemetry off the control thread. Sentry must already be initialized
// (sentry.Init) by the caller before this handler is used — the engine
// itself never calls sentry.Init, since that's a process-wide decision
// outside the engine's scope.
type SentryErrorHandler struct {
	Logger *log.Logger
}

func (h SentryErrorHandler) HandleError(component string, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		sentry.CaptureException(err)
	})
	if h.Logger != nil {
		h.Logger.Warn("engine error reported to sentry", "component", component, "error", err)
	}
}
