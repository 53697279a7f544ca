package models

import (
	"errors"
	"fmt"
)

var (
	ErrSlotTaken         = errors.New("slot already taken")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("not permitted")
)

// SlotTakenError means the caller lost the race for a slot. Offer another slot.
type SlotTakenError struct {
	Key SlotKey
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("slot %s on %s is already taken", e.Key.Time, e.Key.Date)
}

func (e *SlotTakenError) Is(target error) bool { return target == ErrSlotTaken }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type AuthorizationError struct {
	ActorID string
	ShopID  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %q may not manage bookings of shop %q", e.ActorID, e.ShopID)
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrForbidden }
