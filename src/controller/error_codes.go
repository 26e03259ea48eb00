package controller

import "fmt"

// AdmissionRejectedError means every slot in the user's capacity pool is
// occupied. Terminal for the request; never queued or retried here,
// backpressure is the caller's.
type AdmissionRejectedError struct {
	UserID    uint
	MissionID string
	Mode      string
	Tier      string
}

func (e *AdmissionRejectedError) Error() string {
	return fmt.Sprintf("admission rejected: user %d has no free %s slot (tier %s) for mission %s",
		e.UserID, e.Mode, e.Tier, e.MissionID)
}

// DirectionBlockedError means the gate refused the trade, usually the
// anti-hedging rule. A hard stop, not a retryable condition.
type DirectionBlockedError struct {
	UserID    uint
	Symbol    string
	Direction string
	Action    string
	Rationale string
}

func (e *DirectionBlockedError) Error() string {
	return fmt.Sprintf("direction %s on %s blocked for user %d: %s",
		e.Direction, e.Symbol, e.UserID, e.Rationale)
}

// InvalidLevelsError means the builder could not produce a command at all,
// which only happens when no entry price was resolvable. Lesser level
// problems are corrected in place and reported on the command itself.
type InvalidLevelsError struct {
	MissionID string
	Symbol    string
	Err       error
}

func (e *InvalidLevelsError) Error() string {
	return fmt.Sprintf("invalid levels for mission %s on %s: %v", e.MissionID, e.Symbol, e.Err)
}

func (e *InvalidLevelsError) Unwrap() error { return e.Err }

// MissingBalanceError means the execution agent has never reported a
// balance snapshot, so the command cannot be sized. Distinct from a
// reporting-store read failure, which stays an infrastructure error.
type MissingBalanceError struct {
	UserID    uint
	AgentID   string
	MissionID string
}

func (e *MissingBalanceError) Error() string {
	return fmt.Sprintf("no balance snapshot for agent %s (user %d), mission %s cannot be sized",
		e.AgentID, e.UserID, e.MissionID)
}

// DispatchFailureError means the outbound channel failed after the lease
// was acquired. LeaseReleased reports whether the compensating release
// succeeded; when false an operator force-release is needed.
type DispatchFailureError struct {
	MissionID     string
	LeaseReleased bool
	Err           error
}

func (e *DispatchFailureError) Error() string {
	return fmt.Sprintf("dispatch failed for mission %s (lease released: %t): %v",
		e.MissionID, e.LeaseReleased, e.Err)
}

func (e *DispatchFailureError) Unwrap() error { return e.Err }
