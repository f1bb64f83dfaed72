package services

import "errors"

// Award pipeline error taxonomy. Must-succeed failures surface one of these;
// best-effort goal/badge failures are logged and never propagate.
var (
	// ErrUnauthorized: no authenticated user; rejected before any store access.
	ErrUnauthorized = errors.New("missing user identity")

	// ErrInvalidAmount: an explicit XP amount must be positive. The ledger
	// is append-only credit; nothing may shrink totals.
	ErrInvalidAmount = errors.New("xp amount must be positive")

	// ErrUnknownAction: the action type has no reward config row.
	ErrUnknownAction = errors.New("unknown action type")

	// ErrInactiveAction: the config row exists but is disabled or unpublished.
	ErrInactiveAction = errors.New("action type is inactive")

	// ErrDuplicateSource: a transaction for (user, source_type, source_id)
	// already exists — the triggering action was already credited.
	ErrDuplicateSource = errors.New("action already credited")

	// ErrStoreUnavailable: transient store failure on a must-succeed step.
	// The whole award aborted with no partial credit; safe to retry.
	ErrStoreUnavailable = errors.New("progression store unavailable")
)
