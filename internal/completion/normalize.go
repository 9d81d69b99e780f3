package completion

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/nikhilbhutani/clinicfeedback/internal/llm"
)

var failureMessages = map[ErrorKind]string{
	KindNetwork:        "Could not reach the text generation service. Check the connection and try again.",
	KindEmptyResponse:  "The text generation service returned an empty response. Please try again.",
	KindRemoteRejected: "The text generation service rejected the request. Please try again later.",
	KindTimeout:        "The text generation service took too long to respond. Please try again.",
	KindCancelled:      "The request was cancelled.",
	KindUnknown:        "An error occurred while generating a response. Please try again later.",
}

// Failure builds the failed outcome for kind. The message depends on kind only.
func Failure(kind ErrorKind) Outcome {
	msg, ok := failureMessages[kind]
	if !ok {
		kind = KindUnknown
		msg = failureMessages[KindUnknown]
	}
	return Outcome{Kind: kind, Message: msg}
}

// Normalize maps a raw completion result onto an Outcome.
func Normalize(text string, err error) Outcome {
	if err != nil {
		return Failure(Classify(err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Failure(KindEmptyResponse)
	}
	return Outcome{Text: text}
}

// Classify picks the error kind for a raw transport or provider error.
func Classify(err error) ErrorKind {
	var apiErr *llm.APIError
	var netErr net.Error

	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, llm.ErrEmptyResponse):
		return KindEmptyResponse
	case errors.As(err, &apiErr):
		return KindRemoteRejected
	case errors.As(err, &netErr),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return KindNetwork
	}
	return KindUnknown
}
