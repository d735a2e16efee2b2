package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/crm/internal/contacts/cache"
	e "github.com/gartstein/crm/internal/contacts/errors"
	"github.com/gartstein/crm/internal/contacts/matcher"
	"github.com/gartstein/crm/internal/contacts/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CandidateRepository loads the names duplicate checks compare against.
type CandidateRepository interface {
	GetOrganizationByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Organization, error)
	ListCustomerCompanies(ctx context.Context, companyID uuid.UUID) ([]models.CustomerCompany, error)
	ListContactNames(ctx context.Context, companyID uuid.UUID) ([]models.Contact, error)
}

// DuplicateService warns about companies and persons that probably exist
// already in the caller's organization.
type DuplicateService struct {
	repo   CandidateRepository
	cache  cache.CandidateCache
	logger *zap.Logger
}

func NewDuplicateService(repo CandidateRepository, candidates cache.CandidateCache, logger *zap.Logger) *DuplicateService {
	return &DuplicateService{
		repo:   repo,
		cache:  candidates,
		logger: logger.Named("duplicate_service"),
	}
}

// CheckCompany compares name against the customer companies of the
// caller's organization.
func (s *DuplicateService) CheckCompany(ctx context.Context, userID uuid.UUID, name, excludeID string) (matcher.Result, error) {
	if !matcher.CompanyNameCheckable(name) {
		return matcher.CheckCompanyDuplicate(name, excludeID, nil), nil
	}
	candidates, err := s.candidates(ctx, userID)
	if err != nil {
		return matcher.Result{}, err
	}
	return matcher.CheckCompanyDuplicate(name, excludeID, candidates.Companies), nil
}

// CheckPerson compares a first and last name against the contacts of the
// caller's organization.
func (s *DuplicateService) CheckPerson(ctx context.Context, userID uuid.UUID, firstName, lastName, excludeID string) (matcher.Result, error) {
	if !matcher.PersonNameCheckable(firstName, lastName) {
		return matcher.CheckPersonDuplicate(firstName, lastName, excludeID, nil), nil
	}
	candidates, err := s.candidates(ctx, userID)
	if err != nil {
		return matcher.Result{}, err
	}
	return matcher.CheckPersonDuplicate(firstName, lastName, excludeID, candidates.Persons), nil
}

// candidates serves the organization's names from the cache and loads them
// from the repository on a miss. A failing cache only costs a reload.
func (s *DuplicateService) candidates(ctx context.Context, userID uuid.UUID) (*cache.Candidates, error) {
	org, err := s.repo.GetOrganizationByOwner(ctx, userID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, e.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to resolve company: %w", err)
	}

	cached, generation, cacheErr := s.cache.Get(ctx, org.ID)
	if cacheErr != nil {
		s.logger.Warn("Failed to read duplicate candidates from cache",
			zap.Error(cacheErr),
			zap.String("company_id", org.ID.String()),
		)
	}
	if cached != nil {
		return cached, nil
	}

	candidates, err := s.load(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	// The generation read before loading is unknown after a cache error.
	if cacheErr != nil {
		return candidates, nil
	}
	if err := s.cache.Set(ctx, org.ID, generation, candidates); err != nil {
		s.logger.Warn("Failed to cache duplicate candidates",
			zap.Error(err),
			zap.String("company_id", org.ID.String()),
		)
	}
	return candidates, nil
}

func (s *DuplicateService) load(ctx context.Context, orgID uuid.UUID) (*cache.Candidates, error) {
	companies, err := s.repo.ListCustomerCompanies(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer companies: %w", err)
	}
	contacts, err := s.repo.ListContactNames(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	candidates := &cache.Candidates{
		Companies: make([]matcher.Company, 0, len(companies)),
		Persons:   make([]matcher.Person, 0, len(contacts)),
	}
	for _, c := range companies {
		candidates.Companies = append(candidates.Companies, matcher.Company{ID: c.ID.String(), Name: c.Name})
	}
	for _, c := range contacts {
		candidates.Persons = append(candidates.Persons, matcher.Person{
			ID:        c.ID.String(),
			FirstName: c.FirstName,
			LastName:  c.LastName,
		})
	}
	return candidates, nil
}
