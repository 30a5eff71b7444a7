// Package apperr tags every failure surfaced to a user as either a remote
// service error or a local processing error.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/AyushAagrwal/DataStatX/internal/ai"
)

// Kind separates failures of the language-model API from everything else.
type Kind int

const (
	LocalProcessing Kind = iota
	RemoteService
)

func (k Kind) String() string {
	if k == RemoteService {
		return "remote_service"
	}
	return "local_processing"
}

// Code narrows a Kind for API clients.
type Code string

const (
	CodeInvalidInput  Code = "invalid_input"
	CodeNoDataset     Code = "no_dataset"
	CodeNoUpload      Code = "no_upload"
	CodeEmptyQuery    Code = "empty_query"
	CodeNoChart       Code = "no_chart"
	CodeInternal      Code = "internal"
	CodeRemoteService Code = "remote_service"
)

// RetryHint is appended to local errors in the UI.
const RetryHint = "Sometimes I cant perform certain tasks or try to change the logic of the question. Please try again. If the problem persists, please contact the developer. Thank you."

// Error is a tagged application error.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Local builds a local processing error.
func Local(code Code, message string, err error) *Error {
	return &Error{Kind: LocalProcessing, Code: code, Message: message, Err: err}
}

// Remote builds a remote service error.
func Remote(err error) *Error {
	return &Error{Kind: RemoteService, Code: CodeRemoteService, Err: err}
}

// Classify returns err as an *Error. Provider failures anywhere in the chain
// become RemoteService; any other untagged error becomes LocalProcessing.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if ai.IsProviderError(err) {
		return Remote(err)
	}
	return Local(CodeInternal, "", err)
}

// IsRemote reports whether err classifies as a remote service error.
func IsRemote(err error) bool {
	e := Classify(err)
	return e != nil && e.Kind == RemoteService
}

// UserMessage renders err the way the UI shows it.
func UserMessage(err error) string {
	e := Classify(err)
	if e == nil {
		return ""
	}
	if e.Kind == RemoteService {
		return fmt.Sprintf("OpenAI API error occurred: %s", e.Error())
	}
	return fmt.Sprintf("An error occurred: %s", e.Error())
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	e := Classify(err)
	if e == nil {
		return http.StatusOK
	}
	if e.Kind == RemoteService {
		return http.StatusBadGateway
	}
	switch e.Code {
	case CodeNoDataset, CodeNoUpload, CodeEmptyQuery:
		return http.StatusBadRequest
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}
