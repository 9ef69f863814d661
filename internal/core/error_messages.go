package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Users can quote the code to support staff for
// faster diagnosis.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the upload size limit
//	FILE002 - Invalid CSV: File is not a valid CSV
//	FILE003 - Unsupported encoding: The requested text encoding is unknown
//	FILE004 - No file: No file was selected
//	FILE005 - Empty file: The uploaded file has no header row
//	FILE006 - Invalid form: The upload is not a multipart form
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing EMAIL column: The file has no EMAIL column
//	VAL002 - Invalid pattern: An exclusion pattern does not compile
//	VAL003 - Invalid rule file: The rule catalogue could not be read
//	VAL004 - Unknown name rule: The MA expansion mode is not recognized
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy: Too many cleaning runs in progress
//	RUN002 - Run not found: The run does not exist or its files expired
//	RUN003 - Request cancelled: The run was cancelled
//	RUN004 - Run timeout: The run took longer than allowed
//	RUN005 - Output locked: Another process is writing the output directory
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Sentinel errors are matched with errors.Is first. Remaining errors are
// matched case-insensitively with strings.Contains; the first matching
// pattern wins, so specific patterns come before general ones.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/emailclean/internal/csv"
	"github.com/JonMunkholm/emailclean/internal/history"
	"github.com/JonMunkholm/emailclean/internal/pipeline"
	"github.com/JonMunkholm/emailclean/internal/rules"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the upload size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with a header row",
		Code:    "FILE002",
	}
	msgEncoding = UserMessage{
		Message: "Unsupported text encoding",
		Action:  "Use latin1, cp1252 or utf8",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to clean",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "FILE005",
	}
	msgInvalidForm = UserMessage{
		Message: "The upload is not a valid form",
		Action:  "Send the file as multipart/form-data in the 'file' field",
		Code:    "FILE006",
	}
	msgMissingEmail = UserMessage{
		Message: "The file has no EMAIL column",
		Action:  "Rename the address column to EMAIL and try again",
		Code:    "VAL001",
	}
	msgInvalidPattern = UserMessage{
		Message: "An exclusion pattern is not a valid regular expression",
		Action:  "Fix the pattern in the rule file",
		Code:    "VAL002",
	}
	msgInvalidRules = UserMessage{
		Message: "The rule catalogue could not be read",
		Action:  "Check the rule file against the output of 'emailclean rules'",
		Code:    "VAL003",
	}
	msgNameRule = UserMessage{
		Message: "Unknown name rule",
		Action:  "Use substring, value, token or off",
		Code:    "VAL004",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "RUN001",
	}
	msgRunNotFound = UserMessage{
		Message: "Run not found",
		Action:  "The run may have expired. Please clean the file again",
		Code:    "RUN002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "RUN003",
	}
	msgTimeout = UserMessage{
		Message: "The run timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "RUN004",
	}
	msgLocked = UserMessage{
		Message: "The output directory is in use",
		Action:  "Wait for the other run to finish or choose another directory",
		Code:    "RUN005",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// errorTargets maps sentinel errors to user messages, checked with errors.Is.
var errorTargets = []struct {
	target error
	msg    UserMessage
}{
	{pipeline.ErrMissingEmailColumn, msgMissingEmail},
	{csv.ErrNoHeader, msgEmptyFile},
	{rules.ErrEmptyCatalogue, msgInvalidRules},
	{ErrTooManyRuns, msgBusy},
	{ErrNoFile, msgNoFile},
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrOutputLocked, msgLocked},
	{ErrRunNotFound, msgRunNotFound},
	{history.ErrNotFound, msgRunNotFound},
	{context.DeadlineExceeded, msgTimeout},
	{context.Canceled, msgCancelled},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	{pattern: "invalid exclusion pattern", msg: msgInvalidPattern},
	{pattern: "rule catalogue", msg: msgInvalidRules},
	{pattern: "unknown name rule", msg: msgNameRule},
	{pattern: "unsupported encoding", msg: msgEncoding},
	{pattern: "invalid csv", msg: msgInvalidCSV},
	{pattern: "read csv", msg: msgInvalidCSV},
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "multipart", msg: msgInvalidForm},
	{pattern: "rate limit", msg: msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check application logs for the original technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	_, err := pipeline.Run(d, patterns)
//	msg := MapError(err)
//	// msg.Code == "VAL001" when d has no EMAIL column
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, et := range errorTargets {
		if errors.Is(err, et.target) {
			return et.msg
		}
	}
	var perr *pipeline.PatternError
	if errors.As(err, &perr) {
		return msgInvalidPattern
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
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
