// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "fmt"

// RejectReason enumerates the taxonomy of expected reasons a transaction can
// be refused entry to the pool. Unlike the teacher's wire.RejectCode (which
// is a wire-protocol value sent to peers), RejectReason only classifies the
// mempool's own refusal so callers can branch on it without string
// matching.
type RejectReason int

const (
	// ReasonChainLimitExceeded means adding the transaction would push an
	// ancestor or descendant package past a configured bound.
	ReasonChainLimitExceeded RejectReason = iota

	// ReasonNonstandard means an injected policy predicate rejected the
	// transaction. The mempool core never produces this reason itself;
	// it is here so callers of Add can report it through the same
	// PolicyError type as mempool-native reasons.
	ReasonNonstandard

	// ReasonConflict means the transaction double-spends a resident
	// transaction's input and no replacement policy was consulted or it
	// was not asked to arbitrate.
	ReasonConflict

	// ReasonNotReplaceable means a replacement policy was consulted and
	// refused to allow the incoming transaction to evict its conflicts.
	ReasonNotReplaceable

	// ReasonLowFee means the transaction's feerate is below the current
	// GetMinFee floor.
	ReasonLowFee

	// ReasonDuplicate means a transaction with this txid already
	// resides in the pool.
	ReasonDuplicate
)

func (r RejectReason) String() string {
	switch r {
	case ReasonChainLimitExceeded:
		return "chain-limit-exceeded"
	case ReasonNonstandard:
		return "nonstandard"
	case ReasonConflict:
		return "conflict"
	case ReasonNotReplaceable:
		return "not-replaceable"
	case ReasonLowFee:
		return "low-fee"
	case ReasonDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// PolicyError represents an expected, well-classified refusal to admit a
// transaction to the pool. It is always safe to present to a remote peer or
// RPC caller. It is distinct from the fatal invariant-violation panics
// raised by Check and by the internal aggregate-unfold helpers, which
// indicate a bug rather than a policy decision (spec §7).
type PolicyError struct {
	Reason      RejectReason
	Description string
}

// Error satisfies the error interface.
func (e PolicyError) Error() string {
	return e.Description
}

// policyErrorf creates a PolicyError with a formatted description.
func policyErrorf(reason RejectReason, format string, args ...interface{}) PolicyError {
	return PolicyError{
		Reason:      reason,
		Description: fmt.Sprintf(format, args...),
	}
}

// IsChainLimitError reports whether err is a PolicyError raised because an
// ancestor or descendant bound was exceeded.
func IsChainLimitError(err error) bool {
	pe, ok := err.(PolicyError)
	return ok && pe.Reason == ReasonChainLimitExceeded
}

// invariantViolation panics with a diagnostic describing a broken internal
// invariant. Per spec §7 these are bugs, never policy decisions, and the
// only correct response is to stop rather than continue operating on
// corrupted bookkeeping state — matching Bitcoin Core's own fatal abort in
// CTxMemPool::Check (original_source/src/mempool/txmempool.h).
func invariantViolation(format string, args ...interface{}) {
	panic(fmt.Sprintf("mempool: internal inconsistency: "+format, args...))
}
