package hooks

import (
	"time"

	"github.com/goliatone/go-docquery/cachemode"
)

// Status is the lifecycle state of a query.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryState is a snapshot of a query's last outcome. Data keeps the last
// successful result while Status is StatusError.
type QueryState[T any] struct {
	Status    Status
	Data      T
	Err       error
	Source    cachemode.Source
	Fetching  bool
	UpdatedAt time.Time
}

func (s QueryState[T]) IsIdle() bool    { return s.Status == StatusIdle }
func (s QueryState[T]) IsSuccess() bool { return s.Status == StatusSuccess }
func (s QueryState[T]) IsError() bool   { return s.Status == StatusError }

// MutationStatus is the lifecycle state of a mutation.
type MutationStatus string

const (
	MutationIdle    MutationStatus = "idle"
	MutationPending MutationStatus = "pending"
	MutationSuccess MutationStatus = "success"
	MutationError   MutationStatus = "error"
)

// MutationState is a snapshot of a mutation's last call.
type MutationState[In, Out any] struct {
	Status    MutationStatus
	Variables In
	Data      Out
	Err       error
}

func (s MutationState[In, Out]) IsPending() bool { return s.Status == MutationPending }
func (s MutationState[In, Out]) IsSuccess() bool { return s.Status == MutationSuccess }
func (s MutationState[In, Out]) IsError() bool   { return s.Status == MutationError }
