// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the TUI.
package uxerror

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scoutchat/internal/adapter/tui/theme"
	"scoutchat/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Connection Failed"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text
}

// Render formats the FriendlyError for display in the message list.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Domain sentinels first so errors.Is sees through wrapping.
	{
		match:   is(context.Canceled),
		produce: constantError("Request Cancelled", "The request was cancelled before a reply arrived.", nil),
	},
	{
		match:   is(domain.ErrAuthInvalid),
		produce: constantError("Authentication Failed", "The model API rejected the API key.", []string{"Check llm.api_key in scoutchat.yaml", "Set SCOUTCHAT_LLM_API_KEY in your environment or .env"}),
	},
	{
		match:   is(domain.ErrRateLimit),
		produce: constantError("Rate Limited", "Too many requests were sent to the model API.", []string{"Wait a moment before retrying", "Lower your request rate"}),
	},
	{
		match:   is(domain.ErrCircuitOpen),
		produce: constantError("Model Temporarily Unavailable", "Recent calls kept failing, so requests are paused.", []string{"Wait for the cool-down and try again", "Check the model endpoint status"}),
	},
	{
		match:   is(domain.ErrMalformedResponse),
		produce: constantError("Unexpected Model Response", "The model API answered in a format scoutchat could not read.", []string{"Check llm.base_url points at an OpenAI-compatible endpoint", "Verify llm.model is valid for that endpoint"}),
	},
	{
		match:   is(domain.ErrProviderError),
		produce: constantError("Model Service Error", "The model API reported a server error.", []string{"Try again shortly"}),
	},
	{
		match:   is(domain.ErrSearchBlocked),
		produce: constantError("Search Blocked", "The search engine refused the request or served a captcha.", []string{"Try again later", "Switch layouts with search.layout", "Use a SearXNG backend instead of the browser"}),
	},
	{
		match:   is(domain.ErrSearchUnreachable),
		produce: constantError("Search Unavailable", "The search proxy could not be reached.", []string{"Start it with 'scoutchat serve'", "Check chat.search_url", "Use --local-search to drive the browser in-process"}),
	},
	{
		match:   is(domain.ErrLimitReached),
		produce: constantError("Browser Busy", "Every browser tab is in use.", []string{"Try again in a moment", "Raise search.browser.max_concurrent"}),
	},
	{
		match:   is(domain.ErrBusy),
		produce: constantError("Still Working", "A reply is already on its way.", []string{"Wait for it, or press Ctrl+C to cancel"}),
	},
	{
		match:   is(domain.ErrTimeout),
		produce: constantError("Request Timed Out", "The request took too long to complete.", []string{"Try again", "Increase the timeout in config"}),
	},
	{
		match:   is(domain.ErrNetwork),
		produce: constantError("Connection Failed", "Could not reach the model API.", []string{"Check your internet connection", "Verify llm.base_url in config"}),
	},

	// Errors from outside the domain layer.
	{
		match:   containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connection Failed", "Could not reach the remote service.", []string{"Check your internet connection", "Verify the service URL in config", "Check if a firewall is blocking the connection"}),
	},
	{
		match:   containsAny("deadline exceeded", "timeout", "context deadline"),
		produce: constantError("Request Timed Out", "The request took too long to complete.", []string{"Try again", "Check your network connection", "Increase the timeout in config"}),
	},
	{
		match:   containsAny("402", "quota", "billing", "insufficient"),
		produce: constantError("Quota Exceeded", "Your API quota or billing limit has been reached.", []string{"Check your API provider billing dashboard", "Upgrade your plan or add credits"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	return FriendlyError{
		Title:   "Unexpected Error",
		Message: domain.DetailOf(err),
		Hints:   []string{"Try again", "Run with --log-level debug and a log file for more details"},
		Raw:     err.Error(),
	}
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
