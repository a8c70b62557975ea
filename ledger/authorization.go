package ledger

import (
	"context"
	"fmt"

	"travel/entity"
)

func requireActor(actor string) error {
	if actor == "" {
		return entity.ErrUnauthenticated
	}
	return nil
}

func (s *Service) requireOwner(ctx context.Context, bookingID, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}

	owner, err := s.auth.IsOwner(ctx, bookingID, actor)
	if err != nil {
		return err
	}
	if !owner {
		return fmt.Errorf("%w: %s does not own booking %s", entity.ErrForbidden, actor, bookingID)
	}

	return nil
}

func (s *Service) requireAdmin(ctx context.Context, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}

	admin, err := s.auth.IsAdmin(ctx, actor)
	if err != nil {
		return err
	}
	if !admin {
		return fmt.Errorf("%w: %s is not an admin", entity.ErrForbidden, actor)
	}

	return nil
}

func (s *Service) requireOwnerOrAdmin(ctx context.Context, bookingID, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}

	owner, err := s.auth.IsOwner(ctx, bookingID, actor)
	if err != nil {
		return err
	}
	if owner {
		return nil
	}

	return s.requireAdmin(ctx, actor)
}
