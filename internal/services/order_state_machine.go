package services

import (
	"errors"
	"fmt"
	"slices"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
)

// ErrInvalidTransition indicates a status change not present in the transition table.
var ErrInvalidTransition = errors.New("order: invalid status transition")

// InvalidTransitionError reports the exact pair that was rejected. It matches
// ErrInvalidTransition under errors.Is.
type InvalidTransitionError struct {
	Current OrderStatus
	Target  OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order: invalid status transition from %s to %s", e.Current, e.Target)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// orderStateTransitions is the complete transition table. Every status has an
// explicit successor set; terminal statuses map to an empty set. Same-status
// transitions are not allowed.
var orderStateTransitions = map[OrderStatus][]OrderStatus{
	domain.OrderStatusDraft:               {domain.OrderStatusPendingConfirmation},
	domain.OrderStatusPendingConfirmation: {domain.OrderStatusAccepted, domain.OrderStatusCanceled},
	domain.OrderStatusAccepted:            {domain.OrderStatusConfirmed, domain.OrderStatusCanceled},
	domain.OrderStatusConfirmed:           {domain.OrderStatusInProgress, domain.OrderStatusCanceled},
	domain.OrderStatusInProgress:          {domain.OrderStatusAwaitingApproval},
	domain.OrderStatusAwaitingApproval:    {domain.OrderStatusCompleted, domain.OrderStatusDisputed},
	domain.OrderStatusCompleted:           {domain.OrderStatusPaid},
	domain.OrderStatusDisputed:            {domain.OrderStatusCompleted, domain.OrderStatusCanceled},
	domain.OrderStatusPaid:                {},
	domain.OrderStatusCanceled:            {},
}

// CanTransition reports whether the table allows moving from current to target.
func CanTransition(current, target OrderStatus) bool {
	next, ok := orderStateTransitions[current]
	if !ok {
		return false
	}
	return slices.Contains(next, target)
}

// AssertTransition fails with an InvalidTransitionError unless the table
// allows moving from current to target.
func AssertTransition(current, target OrderStatus) error {
	if !CanTransition(current, target) {
		return &InvalidTransitionError{Current: current, Target: target}
	}
	return nil
}
