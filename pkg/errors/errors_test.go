package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInputFormat, "test message: %s", "value")

	if err.Code != ErrCodeInputFormat {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInputFormat)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INPUT_FORMAT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeSubmission, cause, "submit failed")

	if err.Code != ErrCodeSubmission {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeSubmission)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	want := "SUBMISSION_FAILED: submit failed: underlying error"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInputFormat, "test"),
			code:     ErrCodeInputFormat,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInputFormat, "test"),
			code:     ErrCodeNetwork,
			expected: false,
		},
		{
			name:     "outer code",
			err:      Wrap(ErrCodeFetchRetryExhausted, New(ErrCodeNetwork, "inner"), "outer"),
			code:     ErrCodeFetchRetryExhausted,
			expected: true,
		},
		{
			name:     "inner code",
			err:      Wrap(ErrCodeFetchRetryExhausted, New(ErrCodeNetwork, "inner"), "outer"),
			code:     ErrCodeNetwork,
			expected: true,
		},
		{
			name:     "wrapped by fmt",
			err:      fmt.Errorf("library KEGG: %w", New(ErrCodeEnrichment, "boom")),
			code:     ErrCodeEnrichment,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInputFormat,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInputFormat,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeNoValidLibrary, "test"), ErrCodeNoValidLibrary},
		{"outermost wins", Wrap(ErrCodeSubmission, New(ErrCodeNetwork, "x"), "y"), ErrCodeSubmission},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInputFormat, "friendly message"), "friendly message"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
