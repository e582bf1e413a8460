package service

import (
	"errors"

	"github.com/neosam/haushalt-sub000/internal/repository"
)

var (
	// ErrNotFound is the repository sentinel, so errors.Is works across layers.
	ErrNotFound = repository.ErrNotFound

	ErrAlreadyCompleted = errors.New("task already completed for this period")
	ErrNotDueToday      = errors.New("task has no remaining due date")
	ErrNotCompleted     = errors.New("no completion to undo in this period")
	ErrNotAssigned      = errors.New("task is assigned to another member")
	ErrInvalidState     = errors.New("completion is not pending")
)
