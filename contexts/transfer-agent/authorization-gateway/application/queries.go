package application

import (
	"context"
	"strings"

	"quill/contexts/transfer-agent/authorization-gateway/domain/entities"
)

func (s *Service) OperationByID(ctx context.Context, operationID uint64) (entities.Operation, error) {
	return s.Repo.GetOperation(ctx, operationID)
}

func (s *Service) Members(ctx context.Context) ([]string, error) {
	roster, err := s.Repo.GetRoster(ctx)
	if err != nil {
		return nil, err
	}
	return roster.Members, nil
}

func (s *Service) Threshold(ctx context.Context) (int, error) {
	roster, err := s.Repo.GetRoster(ctx)
	if err != nil {
		return 0, err
	}
	return roster.Threshold, nil
}

func (s *Service) IsConfirmedBy(ctx context.Context, operationID uint64, member string) (bool, error) {
	operation, err := s.Repo.GetOperation(ctx, operationID)
	if err != nil {
		return false, err
	}
	return operation.ConfirmedBy(strings.TrimSpace(member)), nil
}

// IsExpired is a pure time check against the freshness window. An executed
// operation may still report expired.
func (s *Service) IsExpired(ctx context.Context, operationID uint64) (bool, error) {
	operation, err := s.Repo.GetOperation(ctx, operationID)
	if err != nil {
		return false, err
	}
	return operation.ExpiredAt(s.now(), s.freshnessWindow()), nil
}

// RequiresDelay reports whether a candidate command would sit out the timed
// hold under the current allow-list.
func (s *Service) RequiresDelay(ctx context.Context, command entities.Command) (bool, error) {
	return s.requiresDelay(ctx, command)
}

func (s *Service) IsAllowedDestination(ctx context.Context, destination string) (bool, error) {
	allowList, err := s.Repo.GetAllowList(ctx)
	if err != nil {
		return false, err
	}
	destination = strings.TrimSpace(destination)
	for _, existing := range allowList {
		if existing == destination {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) AllowList(ctx context.Context) ([]string, error) {
	return s.Repo.GetAllowList(ctx)
}
