package service

import (
	"context"

	"enkana/internal/domain"
	"enkana/internal/repository"
)

// ExceptionService exposes the exception ledger to operators. The only
// mutation is resolving: a one-way flag flip recording that a human has
// investigated and handled the money movement out of band. It triggers
// no compensating action.
type ExceptionService struct {
	exceptionRepo repository.ExceptionRepository
}

// NewExceptionService creates a new ExceptionService.
func NewExceptionService(exceptionRepo repository.ExceptionRepository) *ExceptionService {
	return &ExceptionService{exceptionRepo: exceptionRepo}
}

// ListUnresolved returns all exceptions awaiting review.
func (s *ExceptionService) ListUnresolved(ctx context.Context) ([]*domain.PaymentException, error) {
	return s.exceptionRepo.ListUnresolved(ctx)
}

// Resolve marks an exception as handled and returns it. Resolving an
// already resolved exception is idempotent.
func (s *ExceptionService) Resolve(ctx context.Context, id string) (*domain.PaymentException, error) {
	if id == "" {
		return nil, ErrInvalidExceptionID
	}

	if err := s.exceptionRepo.MarkResolved(ctx, id); err != nil {
		return nil, err
	}

	return s.exceptionRepo.GetByID(ctx, id)
}
