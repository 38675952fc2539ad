package telegramhelper

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrForbidden means the conversation is private or the account has been
	// banned from it.
	ErrForbidden = errors.New("conversation is private or forbidden")
	// ErrAlreadyMember means the account already belongs to the conversation.
	ErrAlreadyMember = errors.New("already a member of the conversation")
	// ErrInvalidReference means the username or invite link does not resolve.
	ErrInvalidReference = errors.New("invalid conversation reference")
	// ErrEmptyInvite means an invite link carried no hash.
	ErrEmptyInvite = errors.New("empty invite hash")
)

// ThrottledError carries the wait the provider demands before further calls.
type ThrottledError struct {
	Wait time.Duration
	Err  error
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled for %s: %v", e.Wait, e.Err)
}

func (e *ThrottledError) Unwrap() error { return e.Err }

var (
	retryAfterRegex = regexp.MustCompile(`(?i)retry after (\d+)`)
	floodWaitRegex  = regexp.MustCompile(`FLOOD_WAIT_(\d+)`)
)

var forbiddenMarkers = []string{
	"CHANNEL_PRIVATE",
	"CHAT_FORBIDDEN",
	"CHAT_ADMIN_REQUIRED",
	"USER_BANNED_IN_CHANNEL",
	"CHANNEL_BANNED",
	"Have no rights",
	"Not enough rights",
}

var invalidMarkers = []string{
	"USERNAME_INVALID",
	"USERNAME_NOT_OCCUPIED",
	"INVITE_HASH_INVALID",
	"INVITE_HASH_EXPIRED",
	"CHANNEL_INVALID",
	"Chat not found",
	"Invalid chat identifier",
	"Invalid invite link",
}

// ClassifyError maps a TDLib error onto the informer's error taxonomy. The
// returned error wraps err, so the TDLib message is kept for logging. Errors
// that fit no category are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		return err
	}
	msg := err.Error()

	if m := retryAfterRegex.FindStringSubmatch(msg); m != nil {
		return &ThrottledError{Wait: seconds(m[1]), Err: err}
	}
	if m := floodWaitRegex.FindStringSubmatch(msg); m != nil {
		return &ThrottledError{Wait: seconds(m[1]), Err: err}
	}
	if strings.Contains(msg, "USER_ALREADY_PARTICIPANT") {
		return fmt.Errorf("%w: %v", ErrAlreadyMember, err)
	}
	if strings.Contains(msg, "INVITE_HASH_EMPTY") {
		return fmt.Errorf("%w: %v", ErrEmptyInvite, err)
	}
	for _, marker := range forbiddenMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	for _, marker := range invalidMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
	}
	return err
}

// ThrottleWait reports the wait carried by a throttling error.
func ThrottleWait(err error) (time.Duration, bool) {
	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		return throttled.Wait, true
	}
	return 0, false
}

func seconds(s string) time.Duration {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return time.Duration(n) * time.Second
}
