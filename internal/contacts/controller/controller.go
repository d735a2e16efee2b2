// Package controller implements the service layer: the atomic save of a
// contact with its employee data and role, and the server-side duplicate
// checks.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/crm/internal/contacts/cache"
	"github.com/gartstein/crm/internal/contacts/db"
	e "github.com/gartstein/crm/internal/contacts/errors"
	"github.com/gartstein/crm/internal/contacts/events"
	"github.com/gartstein/crm/internal/contacts/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgCreated = "Contact created successfully"
	msgUpdated = "Contact updated successfully"
)

type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the storage the contact service reads outside of the
// save transaction.
type Repository interface {
	GetOrganizationByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Organization, error)
	GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	GetEmployeeDetailsByContact(ctx context.Context, contactID uuid.UUID) (*models.EmployeeDetails, error)
	ListEmployeeChildren(ctx context.Context, detailsID uuid.UUID) ([]models.EmployeeChild, error)
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

// ContactService saves contacts of the caller's organization.
type ContactService struct {
	repo     Repository
	cache    cache.CandidateCache
	producer EventProducer
	logger   *zap.Logger
}

// NewContactService constructs a ContactService with a repository, the
// candidate cache it keeps fresh, an event producer, and a logger.
func NewContactService(repo Repository, candidates cache.CandidateCache, producer EventProducer, logger *zap.Logger) *ContactService {
	return &ContactService{
		repo:     repo,
		cache:    candidates,
		producer: producer,
		logger:   logger.Named("contact_service"),
	}
}

// SaveContact creates or updates a contact and, for employees, its HR
// details, first-time children and the role assignment. All writes happen
// in one transaction: if any step fails nothing is stored and the error
// names the failing step.
func (s *ContactService) SaveContact(ctx context.Context, userID uuid.UUID, req *models.SaveContactRequest) (*models.SaveContactResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: contact data is required", e.ErrInvalidInput)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	org, err := s.organization(ctx, userID)
	if err != nil {
		return nil, err
	}

	created := req.Contact.ID == nil
	var contactID uuid.UUID
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		id, err := saveContact(ctx, tx, org.ID, req.Contact)
		if err != nil {
			return err
		}
		contactID = id

		if !req.Contact.IsEmployee {
			return nil
		}
		if req.EmployeeDetails != nil {
			if err := saveEmployeeDetails(ctx, tx, org.ID, contactID, req.EmployeeDetails, req.Children); err != nil {
				return err
			}
		}
		if role, ok := req.RequestedRole(); ok {
			// The role belongs to the caller, not to the saved contact.
			if err := saveRole(ctx, tx, org.ID, userID, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to save contact",
			zap.Error(err),
			zap.String("company_id", org.ID.String()),
		)
		return nil, err
	}

	s.afterSave(ctx, events.Event{
		Type:           events.ContactSaved,
		OrganizationID: org.ID,
		ContactID:      contactID,
		Created:        created,
		IsEmployee:     req.Contact.IsEmployee,
	})

	msg := msgUpdated
	if created {
		msg = msgCreated
	}
	return &models.SaveContactResult{
		Success:   true,
		ContactID: contactID,
		Message:   msg,
		Created:   created,
	}, nil
}

// GetContact returns a contact of the caller's organization with its
// employee details and children.
func (s *ContactService) GetContact(ctx context.Context, userID, id uuid.UUID) (*models.ContactView, error) {
	org, err := s.organization(ctx, userID)
	if err != nil {
		return nil, err
	}

	contact, err := s.repo.GetContact(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if contact.CompanyID != org.ID {
		return nil, e.ErrNotFound
	}

	view := &models.ContactView{Contact: contact}
	details, err := s.repo.GetEmployeeDetailsByContact(ctx, id)
	switch {
	case errors.Is(err, e.ErrNotFound):
		return view, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get employee details: %w", err)
	}
	view.EmployeeDetails = details

	view.Children, err = s.repo.ListEmployeeChildren(ctx, details.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	return view, nil
}

func (s *ContactService) organization(ctx context.Context, userID uuid.UUID) (*models.Organization, error) {
	org, err := s.repo.GetOrganizationByOwner(ctx, userID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, e.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to resolve company: %w", err)
	}
	return org, nil
}

// afterSave runs the post-commit side effects. Neither may fail the save.
func (s *ContactService) afterSave(ctx context.Context, event events.Event) {
	if err := s.cache.Invalidate(ctx, event.OrganizationID); err != nil {
		s.logger.Warn("Failed to invalidate duplicate candidates",
			zap.Error(err),
			zap.String("company_id", event.OrganizationID.String()),
		)
	}
	go func() {
		s.producer.Produce(event)
	}()
}

func saveContact(ctx context.Context, tx *db.Repository, orgID uuid.UUID, input models.ContactInput) (uuid.UUID, error) {
	if input.ID != nil {
		if err := tx.UpdateContact(ctx, *input.ID, orgID, input.Updates()); err != nil {
			return uuid.Nil, e.Step("Contact update", err)
		}
		return *input.ID, nil
	}

	contact := input.NewContact(orgID)
	if err := tx.CreateContact(ctx, contact); err != nil {
		return uuid.Nil, e.Step("Contact creation", err)
	}
	return contact.ID, nil
}

// saveEmployeeDetails updates existing details or creates them together
// with the submitted children. Children of existing details are left as
// they are.
func saveEmployeeDetails(ctx context.Context, tx *db.Repository, orgID, contactID uuid.UUID,
	input *models.EmployeeDetailsInput, children []models.ChildInput) error {
	existing, err := tx.GetEmployeeDetailsByContact(ctx, contactID)
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return e.Step("Employee details lookup", err)
	}

	if existing != nil {
		return e.Step("Employee details update", tx.UpdateEmployeeDetails(ctx, existing.ID, input.Updates()))
	}

	details := input.NewEmployeeDetails(contactID, orgID)
	if err := tx.CreateEmployeeDetails(ctx, details); err != nil {
		return e.Step("Employee details creation", err)
	}
	return e.Step("Children creation", tx.CreateEmployeeChildren(ctx, models.NewChildren(details.ID, children)))
}

func saveRole(ctx context.Context, tx *db.Repository, orgID, userID uuid.UUID, role models.Role) error {
	existing, err := tx.GetRoleAssignment(ctx, orgID, userID)
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return e.Step("Role lookup", err)
	}

	if existing != nil {
		return e.Step("Role update", tx.UpdateRoleAssignment(ctx, existing.ID, role))
	}
	return e.Step("Role creation", tx.CreateRoleAssignment(ctx, &models.RoleAssignment{
		UserID:    userID,
		CompanyID: orgID,
		Role:      role,
	}))
}
