package core

import (
	"errors"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// Error codes for protocol errors.
const (
	ErrCodeNickUnavailable = "nick_unavailable"
	ErrCodeNickRequired    = "nick_required"
	ErrCodeBadChannelName  = "bad_channel_name"
	ErrCodeAlreadyJoined   = "already_joined"
	ErrCodeNotMember       = "not_member"
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeNotInChannel    = "not_in_channel"
	ErrCodeReplayTimestamp = "replay_timestamp"
	ErrCodeReplayChannel   = "replay_channel"
	ErrCodeUnknownCommand  = "unknown_command"
)

// Success texts sent after "ok".
const (
	TextNickSet        = "Your nick has been set."
	TextNickChanged    = "Your nick has been changed."
	TextChannelCreated = "You have created and joined the channel."
	TextChannelJoined  = "You have joined the channel."
	TextChannelLeft    = "You have left the channel."
	TextReplayValid    = "Replay command is valid."
)

// ErrHubStopped is returned when a request reaches a hub that is no longer running.
var ErrHubStopped = errors.New("hub stopped")

// CoreError wraps a code and the human-readable text sent to the client.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Line renders the error as a reply line.
func (e *CoreError) Line() string {
	return proto.FormatError(e.Message)
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

var (
	errNickUnavailable = coreError(ErrCodeNickUnavailable, "You cannot use this nick.")
	errNickRequired    = coreError(ErrCodeNickRequired, "First, you have to select your nick.")
	errBadChannelName  = coreError(ErrCodeBadChannelName, "Channel name must start with <#>.")
	errAlreadyJoined   = coreError(ErrCodeAlreadyJoined, "You are already joined to this channel.")
	errNotMember       = coreError(ErrCodeNotMember, "You are not member of this channel.")
	errChannelNotFound = coreError(ErrCodeChannelNotFound, "The channel does not exist.")
	errNotInChannel    = coreError(ErrCodeNotInChannel, "You are no associated with this channel.")
	errReplayTimestamp = coreError(ErrCodeReplayTimestamp, "Replay command is not valid - timestamp.")
	errReplayChannel   = coreError(ErrCodeReplayChannel, "Replay command is not valid - channel.")
	errUnknownCommand  = coreError(ErrCodeUnknownCommand, "Unknown command.")
)

func okLine(text string) string {
	return proto.FormatOK(text)
}
