package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
)

type Service struct {
	log  *slog.Logger
	repo StockRepository
}

func NewService(log *slog.Logger, repo StockRepository) *Service {
	return &Service{log: log, repo: repo}
}

func (s *Service) Product(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.Product(ctx, id)
}

// Reserve decrements stock line by line, in order, and stops at the first
// line that cannot be served. The lines already decremented are returned
// with the error; restoring them is the caller's decision.
func (s *Service) Reserve(ctx context.Context, lines []domain.Line) ([]domain.Line, error) {
	applied := make([]domain.Line, 0, len(lines))
	for _, l := range lines {
		if err := s.repo.DecrementIfAvailable(ctx, l.ProductID, l.Quantity); err != nil {
			var se *domain.ShortfallError
			if errors.As(err, &se) {
				s.log.Info("stock shortfall", "product_id", l.ProductID, "requested", l.Quantity, "available", se.Available, "missing", se.Missing)
				return applied, err
			}
			return applied, fmt.Errorf("decrement %s: %w", l.ProductID, err)
		}
		applied = append(applied, l)
	}
	return applied, nil
}

// Release puts stock back. It attempts every line and reports all failures.
func (s *Service) Release(ctx context.Context, lines []domain.Line) error {
	var errs []error
	for _, l := range lines {
		if err := s.repo.Increment(ctx, l.ProductID, l.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", l.ProductID, err))
		}
	}
	return errors.Join(errs...)
}
