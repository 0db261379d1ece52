package core

// # Error Codes Reference
//
// Errors shown to users carry a code they can quote to support.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid number: a cell expects a number
//	VAL002 - Invalid date: a cell expects a date
//	VAL003 - Invalid yes/no: a cell expects yes/no, true/false or 1/0
//	VAL004 - Invalid choice: the value is not one of the allowed values
//	VAL005 - Some cells could not be saved (any other cell error)
//
// # Record Errors (REC001-REC099)
//
//	REC001 - Record not found: the record was removed by someone else
//	REC002 - Missing value: a new record needs a value for every field
//	REC003 - Conflict: a record for these coordinates already exists
//	REC004 - Invalid reference: the record points at a missing row
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Malformed request: posted keys do not belong to the table
//	REQ002 - Stale table: the table changed since the page was loaded
//	REQ003 - Request cancelled
//	REQ004 - Request timeout
//	REQ005 - Busy: too many saves in progress
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Unknown table
//	TBL002 - Read-only table
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused
//	DB002 - Connection reset
//	DB003 - Deadlock
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Support staff should check the logs for the technical error, found by
// request id.

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/dimtable/internal/edit"
	"github.com/JonMunkholm/dimtable/internal/postgres"
	"github.com/JonMunkholm/dimtable/internal/store"
)

// ErrRateLimited is returned by the web layer when a client exceeds its
// request budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds are checked with errors.Is, in order, before any pattern.
// ErrStaleLayout precedes ErrMalformedInput, which stale layout errors are
// marked with.
var errorKinds = []errorKind{
	{store.ErrRecordNotFound, UserMessage{
		Message: "A record was removed by someone else",
		Action:  "Reload the table and enter your changes again",
		Code:    "REC001",
	}},
	{store.ErrDefaultMissing, UserMessage{
		Message: "A new record needs a value for every field",
		Action:  "Fill in all fields of the row",
		Code:    "REC002",
	}},
	{postgres.ErrConflict, UserMessage{
		Message: "A record for these cells already exists",
		Action:  "Reload the table; someone else saved first",
		Code:    "REC003",
	}},
	{postgres.ErrInvalidReference, UserMessage{
		Message: "The record references a row that does not exist",
		Action:  "Reload the table",
		Code:    "REC004",
	}},
	{ErrStaleLayout, UserMessage{
		Message: "The table changed since the page was loaded",
		Action:  "Reload the table and enter your changes again",
		Code:    "REQ002",
	}},
	{edit.ErrMalformedInput, UserMessage{
		Message: "The request does not match the table",
		Action:  "Reload the page and try again",
		Code:    "REQ001",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ003",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Save fewer cells at once or try again later",
		Code:    "REQ004",
	}},
	{ErrTooManySaves, UserMessage{
		Message: "The server is busy saving other changes",
		Action:  "Please wait a moment and save again",
		Code:    "REQ005",
	}},
	{ErrUnknownTable, UserMessage{
		Message: "Unknown table",
		Action:  "Verify the table name is correct",
		Code:    "TBL001",
	}},
	{ErrReadOnly, UserMessage{
		Message: "This table is read-only",
		Action:  "Ask an administrator to enable editing",
		Code:    "TBL002",
	}},
	{ErrRateLimited, UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns match error text case-insensitively; the first match wins.
var errorPatterns = []errorPattern{
	{"invalid number", UserMessage{
		Message: "Invalid number format detected",
		Action:  "Remove currency symbols and use standard decimal format",
		Code:    "VAL001",
	}},
	{"invalid date", UserMessage{
		Message: "Invalid date format detected",
		Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
		Code:    "VAL002",
	}},
	{"must be yes/no", UserMessage{
		Message: "Invalid yes/no value",
		Action:  "Use yes/no, true/false, or 1/0",
		Code:    "VAL003",
	}},
	{"invalid enum", UserMessage{
		Message: "Value is not in the allowed list",
		Action:  "Check the allowed values for this field",
		Code:    "VAL004",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB002",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB003",
	}},
}

var validationMessage = UserMessage{
	Message: "Some cells could not be saved",
	Action:  "Correct the highlighted cells and save again",
	Code:    "VAL005",
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.Is(err, edit.ErrValidation) {
		return validationMessage
	}
	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to anything but ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
