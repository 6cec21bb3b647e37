package core

// error_messages.go maps technical errors to messages a dashboard user can
// act on. Every message carries a code that support can look up here.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the upload exceeds the configured size limit
//	          Action: Remove rows or columns and upload again
//
//	FILE002 - Malformed row: a data line has a different field count than the header
//	          Action: Fix the row named in the message; values may not contain commas
//
//	FILE004 - No file: the request carried no file
//	          Action: Choose a CSV file to upload
//
//	FILE005 - Empty file: the file has no content
//	          Action: Upload a CSV with a header line
//
//	FILE006 - Unsupported type: the file is not a .csv
//	          Action: Save the data as CSV and upload again
//
// # Session Errors (SES001-SES099)
//
//	SES001 - No dataset: nothing has been uploaded in this session
//	         Action: Upload a CSV file first
//
//	SES002 - No pending edit: apply or cancel was requested with nothing previewed
//	         Action: Preview a cleaning step first
//
//	SES003 - Dataset changed: a newer upload or edit replaced the previewed data
//	         Action: Preview the cleaning step again
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid fill: a fill rule does not suit its column
//	         Action: Use mean or median only on numeric columns
//
//	VAL002 - Unsupported format: the export format is unknown
//	         Action: Choose csv, json, tsv or xlsx
//
//	VAL003 - Bad request: the request body could not be read
//	         Action: Check the request and try again
//
// # Upload and Request Errors (UPL001-UPL099, RATE001)
//
//	UPL002 - System busy: all ingest slots are in use
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//	RATE001 - Too many requests
//
// # Default (ERR000)
//
//	ERR000 - Unknown error: check the server log for the request id
//
// Typed and sentinel errors are matched with errors.Is and errors.As first.
// Errors that only carry text are then matched case-insensitively against
// errorPatterns; the first pattern that matches wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/csvdash/internal/dataset"
)

// ErrNoFile is returned when an upload request has no file part.
var ErrNoFile = errors.New("no file provided")

// ErrBadRequest wraps request decoding failures.
var ErrBadRequest = errors.New("bad request")

// UserMessage is what the UI shows for an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorMatch struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []errorMatch{
	{dataset.ErrFileTooLarge, UserMessage{"File exceeds the maximum upload size", "Remove rows or columns and upload again", "FILE001"}},
	{ErrNoFile, UserMessage{"No file was selected", "Choose a CSV file to upload", "FILE004"}},
	{dataset.ErrEmptyFile, UserMessage{"The uploaded file is empty", "Upload a CSV with a header line", "FILE005"}},
	{dataset.ErrUnsupportedFileType, UserMessage{"Only CSV files are supported", "Save the data as CSV and upload again", "FILE006"}},
	{ErrNoDataset, UserMessage{"No dataset has been uploaded yet", "Upload a CSV file first", "SES001"}},
	{ErrNoPending, UserMessage{"There is no previewed change to apply", "Preview a cleaning step first", "SES002"}},
	{ErrDatasetChanged, UserMessage{"The dataset changed after the preview was made", "Preview the cleaning step again", "SES003"}},
	{dataset.ErrUnsupportedFormat, UserMessage{"Unsupported download format", "Choose csv, json, tsv or xlsx", "VAL002"}},
	{ErrBadRequest, UserMessage{"The request could not be read", "Check the request and try again", "VAL003"}},
	{ErrTooManyUploads, UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL002"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Try a smaller file or check your connection", "UPL005"}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that lost their type, such as those coming
// from middleware or wrapped as plain strings.
var errorPatterns = []errorPattern{
	{"request body too large", UserMessage{"File exceeds the maximum upload size", "Remove rows or columns and upload again", "FILE001"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
	{"multipart", UserMessage{"The upload could not be read", "Choose a CSV file and try again", "FILE004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "UPL005"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var mre *dataset.MalformedRowError
	if errors.As(err, &mre) {
		return UserMessage{
			Message: mre.Error(),
			Action:  "Fix that row so every line has the same number of fields as the header",
			Code:    "FILE002",
		}
	}

	var fe *dataset.FillError
	if errors.As(err, &fe) {
		return UserMessage{
			Message: fe.Error(),
			Action:  "Use mean or median only on numeric columns and give constants that match the column",
			Code:    "VAL001",
		}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	for _, m := range sentinelMessages {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}

	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.msg
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

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logs, with the message shown
// to the user.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string { return e.User.Message }

func (e *UserError) Unwrap() error { return e.Technical }

// NewUserError maps err and wraps it. It returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
