package contract

import (
	"errors"
)

var (
	ErrNotVotingMember     = errors.New("Governance: Caller is not a voting member")
	ErrNotPrivilegedCaller = errors.New("OwnableUnauthorizedAccount")
	ErrZeroAddress         = errors.New("OwnableInvalidOwner")

	ErrAlreadyMember   = errors.New("Membership: Address is already a member")
	ErrAlreadyVoted    = errors.New("Governance: Voter already voted")
	ErrAlreadyExecuted = errors.New("Governance: Proposal already executed")

	ErrProposalNotActive    = errors.New("Governance: Proposal not active")
	ErrVotingPeriodNotEnded = errors.New("Governance: Voting period not ended")

	ErrQuorumNotReached   = errors.New("Governance: Quorum not reached")
	ErrProposalDidNotPass = errors.New("Governance: Proposal did not pass")

	ErrIncorrectFee        = errors.New("Membership: Incorrect entry fee sent")
	ErrInsufficientBalance = errors.New("Income: Insufficient balance")
	ErrInvalidPercentage   = errors.New("Income: Invalid percentage")

	ErrExecutionFailed = errors.New("Governance: Execution failed")

	ErrProposalNotFound  = errors.New("Governance: Proposal does not exist")
	ErrProposalArity     = errors.New("Governance: Proposal function information arity mismatch")
	ErrInvalidEndTime    = errors.New("Governance: New end time must be in the future")
	ErrPayoutOverflow    = errors.New("Income: Payout overflow")
	ErrFeeTransferFailed = errors.New("Membership: Fee transfer failed")
	ErrPayoutFailed      = errors.New("Income: Payout transfer failed")

	ErrNonPayable     = errors.New("method is not payable")
	ErrNoReceive      = errors.New("contract does not accept value")
	ErrUnknownMethod  = errors.New("unknown method")
	ErrBadArgument    = errors.New("bad argument")
	ErrCallDepth      = errors.New("max call depth exceeded")
	ErrGenesisBalance = errors.New("genesis balance cannot be assigned to a contract")
)
