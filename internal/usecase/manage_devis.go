package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

// ManageDevisUseCase backs the admin quote endpoints.
type ManageDevisUseCase struct {
	Repo entity.DevisRepositoryInterface
}

func NewManageDevisUseCase(repo entity.DevisRepositoryInterface) *ManageDevisUseCase {
	return &ManageDevisUseCase{Repo: repo}
}

func (uc *ManageDevisUseCase) Get(ctx context.Context, id string) (*entity.Devis, error) {
	if err := checkUUID("devis_id", id); err != nil {
		return nil, err
	}
	d, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, devisLookupError(id, err)
	}
	return d, nil
}

func (uc *ManageDevisUseCase) ListByLead(ctx context.Context, leadID string) ([]*entity.Devis, error) {
	if err := checkUUID("lead_id", leadID); err != nil {
		return nil, err
	}
	list, err := uc.Repo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, NewDatabaseError("list devis", err)
	}
	if list == nil {
		list = []*entity.Devis{}
	}
	return list, nil
}

func (uc *ManageDevisUseCase) Update(ctx context.Context, id string, patch entity.DevisPatch) (*entity.Devis, error) {
	if err := checkUUID("devis_id", id); err != nil {
		return nil, err
	}
	if errs := ValidateDevisPatch(patch); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}
	d, err := uc.Repo.Update(ctx, id, patch)
	if err != nil {
		return nil, devisLookupError(id, err)
	}
	return d, nil
}

// Delete refuses quotes that were already signed, paid or refused.
func (uc *ManageDevisUseCase) Delete(ctx context.Context, id string) error {
	d, err := uc.Get(ctx, id)
	if err != nil {
		return err
	}
	if !d.Deletable() {
		return &DomainError{
			Code:    CodeConflict,
			Message: fmt.Sprintf("Impossible de supprimer un devis au statut %s", d.Statut),
		}
	}
	if err := uc.Repo.Delete(ctx, id); err != nil {
		return devisLookupError(id, err)
	}
	return nil
}

func devisLookupError(id string, err error) error {
	if errors.Is(err, entity.ErrNotFound) {
		return NewNotFoundError(fmt.Sprintf("Devis %s non trouvé", id))
	}
	return NewDatabaseError("devis query", err)
}

func checkUUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return NewValidationError([]ValidationError{{field, "must be a valid UUID"}})
	}
	return nil
}
