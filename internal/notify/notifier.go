// Package notify delivers user-facing notifications about workflow outcomes.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Severity classifies a notification for display
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier is the user-facing notification collaborator
type Notifier interface {
	Show(ctx context.Context, message string, severity Severity)
}

// ZapNotifier writes notifications to the structured log; the default sink
// when no messenger is configured.
type ZapNotifier struct {
	logger *zap.Logger
}

// NewZapNotifier creates a log-backed notifier
func NewZapNotifier(logger *zap.Logger) *ZapNotifier {
	return &ZapNotifier{logger: logger}
}

// Show logs the notification at a level matching its severity
func (n *ZapNotifier) Show(_ context.Context, message string, severity Severity) {
	switch severity {
	case SeverityError:
		n.logger.Error("Notification", zap.String("severity", string(severity)), zap.String("message", message))
	case SeverityWarning:
		n.logger.Warn("Notification", zap.String("severity", string(severity)), zap.String("message", message))
	default:
		n.logger.Info("Notification", zap.String("severity", string(severity)), zap.String("message", message))
	}
}
