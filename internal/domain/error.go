package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeRootNotFound       ErrorCode = "ROOT_NOT_FOUND"
	CodeToolNotFound       ErrorCode = "TOOL_NOT_FOUND"
	CodePolicyViolation    ErrorCode = "POLICY_VIOLATION"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeParseFailure       ErrorCode = "PARSE_FAILURE"
	CodeIOFailure          ErrorCode = "IO_FAILURE"
	CodeExecutionDisabled  ErrorCode = "EXECUTION_DISABLED"
	CodeSourceViewDisabled ErrorCode = "SOURCE_VIEW_DISABLED"
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	CodeInternal           ErrorCode = "INTERNAL"
)

var (
	ErrRootNotFound       = errors.New("catalog root not found")
	ErrToolNotFound       = errors.New("tool not found")
	ErrPolicyViolation    = errors.New("parameters rejected by policy")
	ErrTimeout            = errors.New("execution timed out")
	ErrParseFailure       = errors.New("source parse failed")
	ErrExecutionDisabled  = errors.New("tool execution is disabled")
	ErrSourceViewDisabled = errors.New("source view is disabled")
	ErrExecutableNotFound = errors.New("interpreter not found")
	ErrPermissionDenied   = errors.New("permission denied")
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

// Wrap attaches op to err, keeping the code of an existing *Error.
func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:    existing.Code,
			Op:      op,
			Message: existing.Message,
			Cause:   existing.Cause,
		}
	}
	return E(code, op, "", err)
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrRootNotFound):
		return CodeRootNotFound, true
	case errors.Is(err, ErrToolNotFound), errors.Is(err, ErrExecutableNotFound):
		return CodeToolNotFound, true
	case errors.Is(err, ErrPolicyViolation):
		return CodePolicyViolation, true
	case errors.Is(err, ErrTimeout):
		return CodeTimeout, true
	case errors.Is(err, ErrParseFailure):
		return CodeParseFailure, true
	case errors.Is(err, ErrExecutionDisabled):
		return CodeExecutionDisabled, true
	case errors.Is(err, ErrSourceViewDisabled):
		return CodeSourceViewDisabled, true
	case errors.Is(err, ErrPermissionDenied):
		return CodeIOFailure, true
	default:
		return "", false
	}
}
