package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/Momo-444/toitureai-api/internal/entity"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ManageLeadsUseCase backs the admin lead endpoints.
type ManageLeadsUseCase struct {
	Repo             entity.LeadRepositoryInterface
	HotLeadThreshold int
}

func NewManageLeadsUseCase(repo entity.LeadRepositoryInterface, hotLeadThreshold int) *ManageLeadsUseCase {
	return &ManageLeadsUseCase{Repo: repo, HotLeadThreshold: hotLeadThreshold}
}

func (uc *ManageLeadsUseCase) Get(ctx context.Context, id string) (*entity.Lead, error) {
	if err := checkUUID("lead_id", id); err != nil {
		return nil, err
	}
	lead, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, leadLookupError(id, err)
	}
	return lead, nil
}

func (uc *ManageLeadsUseCase) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Status = strings.TrimSpace(filter.Status)

	leads, err := uc.Repo.List(ctx, filter)
	if err != nil {
		return nil, NewDatabaseError("list leads", err)
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	return leads, nil
}

func (uc *ManageLeadsUseCase) Update(ctx context.Context, id string, patch entity.LeadPatch) (*entity.Lead, error) {
	if err := checkUUID("lead_id", id); err != nil {
		return nil, err
	}
	if errs := ValidateLeadPatch(patch); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	if patch.Email != nil {
		email := entity.NormalizeEmail(*patch.Email)
		patch.Email = &email
	}
	if patch.Telephone != nil {
		phone := entity.NormalizePhone(*patch.Telephone)
		patch.Telephone = &phone
	}
	if patch.TypeProjet != nil {
		t := entity.NormalizeProjectType(*patch.TypeProjet)
		patch.TypeProjet = &t
	}
	if patch.Description != nil {
		desc := PlainText(*patch.Description)
		patch.Description = &desc
	}
	if patch.Delai != nil {
		d := entity.NormalizeDelai(*patch.Delai)
		patch.Delai = &d
	}
	if patch.LignesDevisCustom != nil {
		lignes := make([]entity.LigneDevis, 0, len(*patch.LignesDevisCustom))
		for _, l := range *patch.LignesDevisCustom {
			lignes = appendLine(lignes, l.Designation, l.Quantite, l.Unite, l.PrixUnitaireHT)
		}
		patch.LignesDevisCustom = &lignes
	}

	lead, err := uc.Repo.Update(ctx, id, patch)
	if err != nil {
		return nil, leadLookupError(id, err)
	}
	return lead, nil
}

func (uc *ManageLeadsUseCase) Delete(ctx context.Context, id string) error {
	if err := checkUUID("lead_id", id); err != nil {
		return err
	}
	if err := uc.Repo.SoftDelete(ctx, id); err != nil {
		return leadLookupError(id, err)
	}
	return nil
}

// Hot lists leads scoring at least threshold; zero means the configured default.
func (uc *ManageLeadsUseCase) Hot(ctx context.Context, threshold int) ([]*entity.Lead, error) {
	if threshold <= 0 {
		threshold = uc.HotLeadThreshold
	}
	if threshold > 100 {
		return nil, NewValidationError([]ValidationError{{"threshold", "must be between 0 and 100"}})
	}
	leads, err := uc.Repo.ListHot(ctx, threshold)
	if err != nil {
		return nil, NewDatabaseError("list hot leads", err)
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	return leads, nil
}

func leadLookupError(id string, err error) error {
	if errors.Is(err, entity.ErrNotFound) {
		return leadNotFound(id)
	}
	return NewDatabaseError("lead query", err)
}
