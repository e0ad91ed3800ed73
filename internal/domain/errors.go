package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCartNotFound         = errors.New("cart not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrCartExists           = errors.New("cart already exists")
	ErrVersionConflict      = errors.New("version conflict")
	ErrConcurrencyExhausted = errors.New("concurrency retries exhausted")
	ErrBusinessRule         = errors.New("business rule violation")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidCheckout      = errors.New("invalid checkout")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrCheckoutInProgress   = errors.New("checkout already in progress")
	ErrInjectedFault        = errors.New("injected fault")
)

// BusinessRuleViolationError is returned when a mutation would push a capped
// product over its per-customer limit. Nothing is written.
type BusinessRuleViolationError struct {
	ProductName string
	Limit       int
	Current     int
	Attempted   int
}

func (e *BusinessRuleViolationError) Error() string {
	return fmt.Sprintf("maximum %d %s per customer: cart has %d, cannot add %d more",
		e.Limit, e.ProductName, e.Current, e.Attempted)
}

func (e *BusinessRuleViolationError) Is(target error) bool {
	return target == ErrBusinessRule
}

// ConcurrencyExhaustedError is returned once every attempt of a
// read-modify-write cycle lost the version race.
type ConcurrencyExhaustedError struct {
	Op       string
	Attempts int
}

func (e *ConcurrencyExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts due to concurrent modifications", e.Op, e.Attempts)
}

func (e *ConcurrencyExhaustedError) Is(target error) bool {
	return target == ErrConcurrencyExhausted
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order status cannot change from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
