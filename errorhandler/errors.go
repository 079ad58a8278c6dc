package errorhandler

import (
	"errors"
	"fmt"

	"PruneBot/logger"
)

type ErrorCategory int

const (
	IngestionError ErrorCategory = iota
	LookupError
	ScanError
	ConfigurationError
	PermissionError
	DatabaseError
	DiscordError
	UnknownError
)

func (c ErrorCategory) String() string {
	switch c {
	case IngestionError:
		return "ingestion"
	case LookupError:
		return "lookup"
	case ScanError:
		return "scan"
	case ConfigurationError:
		return "configuration"
	case PermissionError:
		return "permission"
	case DatabaseError:
		return "database"
	case DiscordError:
		return "discord"
	default:
		return "unknown"
	}
}

type CustomError struct {
	Category         ErrorCategory
	OriginalErr      error
	UserMessage      string
	AdminMessage     string
	IsUserActionable bool
}

func (e *CustomError) Error() string {
	if e.OriginalErr == nil {
		return e.AdminMessage
	}
	return e.OriginalErr.Error()
}

func (e *CustomError) Unwrap() error {
	return e.OriginalErr
}

func NewError(category ErrorCategory, err error, context string, userMsg string, isUserActionable bool) *CustomError {
	return &CustomError{
		Category:         category,
		OriginalErr:      err,
		UserMessage:      userMsg,
		AdminMessage:     fmt.Sprintf("%s: %v", context, err),
		IsUserActionable: isUserActionable,
	}
}

// HandleError logs err and returns the message that is safe to show the
// caller, plus whether the caller can do anything about it.
func HandleError(err error) (string, bool) {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		logger.Log.WithError(customErr.OriginalErr).
			WithField("category", customErr.Category.String()).
			WithField("userActionable", customErr.IsUserActionable).
			Error(customErr.AdminMessage)

		if !customErr.IsUserActionable {
			return "An unexpected error occurred. Please try again later.", false
		}

		return customErr.UserMessage, true
	}

	logger.Log.WithError(err).Error("Unexpected error occurred")
	return "An unexpected error occurred. Please try again later.", false
}

func NewDatabaseError(err error, context string) *CustomError {
	return NewError(
		DatabaseError,
		err,
		fmt.Sprintf("Database error: %s", context),
		"We're experiencing database issues. Please try again later.",
		false,
	)
}

func NewScanError(err error, context string) *CustomError {
	return NewError(
		ScanError,
		err,
		fmt.Sprintf("Scan error: %s", context),
		"Could not obtain the member listing for this server. Please try again later.",
		false,
	)
}

func NewConfigurationError(err error, detail string) *CustomError {
	return NewError(
		ConfigurationError,
		err,
		fmt.Sprintf("Configuration error: %s", detail),
		detail,
		true,
	)
}

func NewPermissionError(capability string) *CustomError {
	return NewError(
		PermissionError,
		nil,
		fmt.Sprintf("Permission denied: missing %s", capability),
		fmt.Sprintf("You need the %s permission to use this command.", capability),
		true,
	)
}

func NewDiscordError(err error, context string) *CustomError {
	return NewError(
		DiscordError,
		err,
		fmt.Sprintf("Discord error: %s", context),
		"We're having trouble communicating with Discord. Please try again later.",
		false,
	)
}

func IsDatabaseError(err error) bool {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Category == DatabaseError
	}
	return false
}
