package service

import (
	"errors"
	"fmt"
)

// RejectionReason classifies why an intent was refused
type RejectionReason string

const (
	ReasonAlreadyInMatch      RejectionReason = "already_in_match"
	ReasonBelowMinimum        RejectionReason = "below_minimum"
	ReasonAboveMaximum        RejectionReason = "above_maximum"
	ReasonInsufficientFunds   RejectionReason = "insufficient_funds"
	ReasonOfferUnavailable    RejectionReason = "offer_unavailable"
	ReasonSelfAccept          RejectionReason = "self_accept"
	ReasonNoResourceAvailable RejectionReason = "no_resource_available"
	ReasonNotCancellable      RejectionReason = "not_cancellable"
	ReasonNotInMatch          RejectionReason = "not_in_match"
	ReasonMatchCancelled      RejectionReason = "match_cancelled"
)

// WagerError is a user facing rejection. Two WagerErrors match under errors.Is when their reasons match.
type WagerError struct {
	Reason  RejectionReason
	Message string
}

func (e *WagerError) Error() string {
	return e.Message
}

func (e *WagerError) Is(target error) bool {
	t, ok := target.(*WagerError)
	return ok && t.Reason == e.Reason
}

var (
	ErrAlreadyInMatch      = &WagerError{Reason: ReasonAlreadyInMatch, Message: "already in a wager"}
	ErrBelowMinimum        = &WagerError{Reason: ReasonBelowMinimum, Message: "stake is below the minimum"}
	ErrAboveMaximum        = &WagerError{Reason: ReasonAboveMaximum, Message: "stake is above the maximum"}
	ErrInsufficientFunds   = &WagerError{Reason: ReasonInsufficientFunds, Message: "insufficient funds"}
	ErrOfferUnavailable    = &WagerError{Reason: ReasonOfferUnavailable, Message: "this wager is no longer available"}
	ErrSelfAccept          = &WagerError{Reason: ReasonSelfAccept, Message: "you cannot accept your own wager"}
	ErrNoResourceAvailable = &WagerError{Reason: ReasonNoResourceAvailable, Message: "no arenas available, try again later"}
	ErrNotCancellable      = &WagerError{Reason: ReasonNotCancellable, Message: "this wager can no longer be cancelled"}
	ErrNotInMatch          = &WagerError{Reason: ReasonNotInMatch, Message: "you are not in a wager"}
	ErrMatchCancelled      = &WagerError{Reason: ReasonMatchCancelled, Message: "the match was cancelled and stakes refunded"}
)

// Arena registry errors
var (
	ErrArenaNotFound = errors.New("arena not found")
	ErrArenaExists   = errors.New("arena already exists")
	ErrArenaInUse    = errors.New("arena is in use")
	ErrArenaNotReady = errors.New("arena spawns are not configured")
)

// Cancellation reasons shown to participants
const (
	ReasonTextDisconnected = "a player disconnected"
	ReasonTextByCreator    = "cancelled by creator"
	ReasonTextCreatorLeft  = "creator left the queue"
	ReasonTextShutdown     = "service shutting down"
	ReasonTextStartFailed  = "match could not be started"
)

func reject(base *WagerError, format string, args ...any) *WagerError {
	return &WagerError{Reason: base.Reason, Message: fmt.Sprintf(format, args...)}
}

// RejectionOf extracts the rejection reason from err, if it is a WagerError
func RejectionOf(err error) (RejectionReason, bool) {
	var we *WagerError
	if errors.As(err, &we) {
		return we.Reason, true
	}
	return "", false
}
