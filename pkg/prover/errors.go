// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prover

import "errors"

// Error taxonomy for episode and driver failures.
//
// Protocol violations are fatal to the current episode and are never
// retried internally: callers catch them, log, and start a fresh episode.
// Precondition failures (ErrNotStarted, ErrInvalidAction, ErrClosed) are
// caller bugs and are raised distinctly from protocol violations.
// Truncation is NOT an error; it is reported through the normal step
// return value.
var (
	// ErrNotStarted is returned when Step or Advance is called on an
	// environment or driver that was never reset.
	ErrNotStarted = errors.New("environment not reset: call Reset first")

	// ErrClosed is returned when Reset or Step is called after Close.
	ErrClosed = errors.New("environment closed")

	// ErrInvalidAction is returned when an action index falls outside
	// the current clause set.
	ErrInvalidAction = errors.New("action index out of range")

	// ErrProtocol marks output from a prover that the driver does not
	// recognize. The wrapping error names the offending tag or payload;
	// it is never silently swallowed.
	ErrProtocol = errors.New("prover protocol violation")
)
