package core

// error_messages.go maps technical errors to operator-facing messages with
// support codes. Codes appear in partition reports and HTTP error bodies so
// an operator can quote them when a sync misbehaves.
//
// Error codes are grouped by category:
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source unreachable: the export endpoint failed or answered non-2xx
//	SRC002 - Source timeout: the tab did not arrive within the fetch deadline
//	SRC003 - Empty source: the tab exported no text
//	SRC004 - Source too large: the tab exceeded the configured size cap
//
// # Structure Errors (STR001-STR099)
//
//	STR001 - Short header: fewer header columns than a product table has
//	STR002 - Missing columns: identifier, name or net price not found
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Bad identifier: not numeric or too short
//	ROW002 - Missing identifier: the identifier cell is empty
//
// # Store Errors (DB001-DB099)
//
//	DB001 - Connection refused
//	DB002 - Connection reset
//	DB003 - Timeout
//	DB004 - Schema mismatch: a column or the table is missing
//	DB005 - Constraint violation
//	DB006 - Deadlock or locked database
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Already running: another sync is in progress
//	RUN002 - Nothing to commit: no tab produced a product
//
// ERR000 is the fallback; check the logs for the technical error.
//
// Typed errors are classified first, then error text is matched
// case-insensitively with strings.Contains; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgSourceUnreachable = UserMessage{
		Message: "The spreadsheet export could not be downloaded",
		Action:  "Check that the sheet is shared and the tab name is correct",
		Code:    "SRC001",
	}
	msgSourceTimeout = UserMessage{
		Message: "The spreadsheet export timed out",
		Action:  "Try again; large tabs may need a longer SOURCE_TIMEOUT",
		Code:    "SRC002",
	}
	msgSourceEmpty = UserMessage{
		Message: "The tab is empty",
		Action:  "Check that the tab has a header row and products",
		Code:    "SRC003",
	}
	msgShortHeader = UserMessage{
		Message: "The tab header has too few columns",
		Action:  "Make sure the first rows of the tab contain the product table header",
		Code:    "STR001",
	}
	msgMissingColumns = UserMessage{
		Message: "Required columns were not found in the tab header",
		Action:  "Add identifier (SKU/Código), product name and net price columns",
		Code:    "STR002",
	}
)

// errorPatterns maps error text to messages; order matters.
var errorPatterns = []errorPattern{
	// Source
	{"source returned no data", msgSourceEmpty},
	{"source too large", UserMessage{
		Message: "The tab export is larger than allowed",
		Action:  "Split the tab or raise SOURCE_MAX_BYTES",
		Code:    "SRC004",
	}},
	{"unexpected status", msgSourceUnreachable},

	// Structure
	{"need at least", msgShortHeader},
	{"missing required columns", msgMissingColumns},

	// Rows
	{"identifier must be numeric", UserMessage{
		Message: "A row has an invalid product identifier",
		Action:  "Identifiers must be numeric codes; fix the listed rows",
		Code:    "ROW001",
	}},
	{"missing identifier", UserMessage{
		Message: "A row has no product identifier",
		Action:  "Fill in the identifier or remove the row",
		Code:    "ROW002",
	}},

	// Run
	{"already running", UserMessage{
		Message: "A catalog sync is already running",
		Action:  "Wait for it to finish and check /api/sync/status",
		Code:    "RUN001",
	}},
	{"no partition produced committable records", UserMessage{
		Message: "No tab produced any product",
		Action:  "Review the per-tab errors in the report",
		Code:    "RUN002",
	}},

	// Store
	{"connection refused", UserMessage{
		Message: "Unable to connect to the catalog database",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"connection reset", UserMessage{
		Message: "The database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB002",
	}},
	{"deadline exceeded", UserMessage{
		Message: "The database write timed out",
		Action:  "Try again or lower SYNC_BATCH_SIZE",
		Code:    "DB003",
	}},
	{"timeout", UserMessage{
		Message: "The database write timed out",
		Action:  "Try again or lower SYNC_BATCH_SIZE",
		Code:    "DB003",
	}},
	{"no such column", msgSchemaMismatch},
	{"no such table", msgSchemaMismatch},
	{"does not exist", msgSchemaMismatch},
	{"violates", msgConstraint},
	{"constraint failed", msgConstraint},
	{"deadlock", msgLocked},
	{"database is locked", msgLocked},
}

var (
	msgSchemaMismatch = UserMessage{
		Message: "The catalog table does not match the expected schema",
		Action:  "Run the products migration or add the column to SYNC_OPTIONAL_COLUMNS",
		Code:    "DB004",
	}
	msgConstraint = UserMessage{
		Message: "A product violates a database constraint",
		Action:  "Check the failed chunk's products for invalid values",
		Code:    "DB005",
	}
	msgLocked = UserMessage{
		Message: "The database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB006",
	}
)

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the service logs",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-facing message.
//
//	msg := MapError(&StructuralError{Partition: "Perfiles", Missing: []Field{FieldName}})
//	// msg.Code == "STR002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var te *TransportError
	if errors.As(err, &te) {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return msgSourceTimeout
		case errors.Is(err, ErrEmptySource):
			return msgSourceEmpty
		case te.StatusCode == 0 && errors.Is(err, ErrSourceTooLarge):
			// falls through to the pattern table
		default:
			return msgSourceUnreachable
		}
	}

	var se *StructuralError
	if errors.As(err, &se) {
		if len(se.Missing) == 0 {
			return msgShortHeader
		}
		return msgMissingColumns
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its operator-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

// NewUserError wraps err with its mapped message. It returns nil for a nil
// error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s (Code: %s)", e.User.Message, e.User.Code)
}

func (e *UserError) Unwrap() error { return e.Technical }
