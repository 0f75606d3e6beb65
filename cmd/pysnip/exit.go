package main

import "pysnip/internal/domain"

// Exit statuses for failures that are not a tool's own exit code.
const (
	exitFailure  = 1
	exitUsage    = 2
	exitNotFound = 3
	exitRefused  = 4
)

type exitError struct {
	code    int
	message string
	silent  bool
}

func (e exitError) Error() string {
	return e.message
}

func exitSilent(code int) error {
	return exitError{code: code, silent: true}
}

func exitCodeFor(err error) int {
	code, ok := domain.CodeFrom(err)
	if !ok {
		return exitFailure
	}
	switch code {
	case domain.CodeInvalidArgument:
		return exitUsage
	case domain.CodeRootNotFound, domain.CodeToolNotFound:
		return exitNotFound
	case domain.CodePolicyViolation, domain.CodeExecutionDisabled, domain.CodeSourceViewDisabled:
		return exitRefused
	default:
		return exitFailure
	}
}
