// Package errors/handlers provides interface-specific error handling implementations.
//
// ERROR FLOW:
// 1. Storage or service code generates an AppError
// 2. The interface-specific handler logs it through logrus
// 3. The handler formats it for the terminal (CLI) or a styled status line (TUI)
//
// USAGE PATTERNS:
// - CLI: Create CLIErrorHandler and use HandleError() method
// - TUI: Use FormatError() and GetErrorStyle() for the status bar
package errors

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for CLI interface
type CLIErrorHandler struct {
	Verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		Verbose: verbose,
	}
}

// HandleError logs err and returns it formatted for display
func (h *CLIErrorHandler) HandleError(err error) error {
	if err == nil {
		return nil
	}
	appErr := GetAppError(err)
	logError("cli", appErr)

	msg := h.FormatError(appErr)
	if h.Verbose && appErr.Cause != nil {
		msg = fmt.Sprintf("%s\n  caused by: %v", msg, appErr.Cause)
	}
	return fmt.Errorf("%s", msg)
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	message := appErr.Message
	if appErr.Details != "" {
		message = fmt.Sprintf("%s (%s)", message, appErr.Details)
	}

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("❌ CRITICAL: %s", message)
	case SeverityError:
		return fmt.Sprintf("❌ ERROR: %s", message)
	case SeverityWarning:
		return fmt.Sprintf("⚠️  WARNING: %s", message)
	case SeverityInfo:
		return fmt.Sprintf("ℹ️  INFO: %s", message)
	default:
		return fmt.Sprintf("❌ %s", message)
	}
}

// TUIErrorHandler handles errors for TUI interface
type TUIErrorHandler struct {
	ShowDetails bool
}

// NewTUIErrorHandler creates a new TUI error handler
func NewTUIErrorHandler(showDetails bool) *TUIErrorHandler {
	return &TUIErrorHandler{
		ShowDetails: showDetails,
	}
}

// HandleError handles errors for TUI interface
func (h *TUIErrorHandler) HandleError(err error) error {
	if err == nil {
		return nil
	}
	appErr := GetAppError(err)
	logError("tui", appErr)
	return appErr
}

// FormatError formats an error for TUI display
func (h *TUIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	message := appErr.Message
	if h.ShowDetails && appErr.Details != "" {
		message = fmt.Sprintf("%s\nDetails: %s", message, appErr.Details)
	}
	if h.ShowDetails && appErr.Cause != nil {
		message = fmt.Sprintf("%s\nCause: %v", message, appErr.Cause)
	}

	return message
}

// GetErrorStyle returns an icon and color for the error severity
func (h *TUIErrorHandler) GetErrorStyle(err error) (string, string) {
	appErr := GetAppError(err)

	switch appErr.Severity {
	case SeverityCritical:
		return "🔥", "#ff0000"
	case SeverityError:
		return "❌", "#ff6b6b"
	case SeverityWarning:
		return "⚠️", "#feca57"
	case SeverityInfo:
		return "ℹ️", "#48cae4"
	default:
		return "❌", "#ff6b6b"
	}
}

// logError writes appErr to the shared logger. Validation and not-found
// conditions are expected user outcomes and are logged below warning.
func logError(source string, appErr *AppError) {
	entry := log.WithFields(log.Fields{
		"source":   source,
		"code":     appErr.Code,
		"category": appErr.Category,
		"severity": appErr.Severity,
	})
	for k, v := range appErr.Context {
		entry = entry.WithField(k, v)
	}
	if appErr.Cause != nil {
		entry = entry.WithError(appErr.Cause)
	}

	switch appErr.Severity {
	case SeverityInfo:
		entry.Debug(appErr.Message)
	case SeverityWarning:
		entry.Info(appErr.Message)
	default:
		entry.Error(appErr.Message)
	}
}
