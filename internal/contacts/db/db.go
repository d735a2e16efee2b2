// Package db implements the gorm-backed repository for contacts, employee
// details, children, role assignments and the tenant lookups.
package db

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/crm/internal/contacts/errors"
	"github.com/gartstein/crm/internal/contacts/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func NewRepository(cfg *Config) (*Repository, error) {
	return Open(cfg.DSN())
}

// Open connects to the Postgres database at dsn and migrates the schema.
func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying db: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// NewRepositoryFromDB wraps an already opened connection.
func NewRepositoryFromDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organization{},
		&models.CustomerCompany{},
		&models.Contact{},
		&models.EmployeeDetails{},
		&models.EmployeeChild{},
		&models.RoleAssignment{},
	)
}

// GetOrganizationByOwner returns the single organization owned by the user.
// No organization, or more than one, is reported as ErrNotFound.
func (r *Repository) GetOrganizationByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Organization, error) {
	var orgs []models.Organization
	result := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at").
		Limit(2).
		Find(&orgs)
	if result.Error != nil {
		return nil, result.Error
	}
	switch len(orgs) {
	case 0:
		return nil, e.ErrNotFound
	case 1:
		return &orgs[0], nil
	default:
		return nil, fmt.Errorf("%w: user owns more than one organization", e.ErrNotFound)
	}
}

func (r *Repository) CreateContact(ctx context.Context, contact *models.Contact) error {
	result := r.db.WithContext(ctx).Create(contact)
	if result.Error != nil {
		return translate(result.Error)
	}
	return nil
}

// UpdateContact writes the given columns to the contact with id inside the
// organization. A contact of another organization is reported as missing.
func (r *Repository) UpdateContact(ctx context.Context, id, companyID uuid.UUID, columns map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Contact{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Updates(columns)

	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	result := r.db.WithContext(ctx).First(&contact, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &contact, nil
}

func (r *Repository) GetEmployeeDetailsByContact(ctx context.Context, contactID uuid.UUID) (*models.EmployeeDetails, error) {
	var details models.EmployeeDetails
	result := r.db.WithContext(ctx).First(&details, "contact_person_id = ?", contactID)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &details, nil
}

func (r *Repository) CreateEmployeeDetails(ctx context.Context, details *models.EmployeeDetails) error {
	result := r.db.WithContext(ctx).Create(details)
	if result.Error != nil {
		return translate(result.Error)
	}
	return nil
}

func (r *Repository) UpdateEmployeeDetails(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.EmployeeDetails{}).
		Where("id = ?", id).
		Updates(columns)

	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// CreateEmployeeChildren inserts all children in a single batch.
func (r *Repository) CreateEmployeeChildren(ctx context.Context, children []models.EmployeeChild) error {
	if len(children) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Create(&children)
	if result.Error != nil {
		return translate(result.Error)
	}
	return nil
}

func (r *Repository) ListEmployeeChildren(ctx context.Context, detailsID uuid.UUID) ([]models.EmployeeChild, error) {
	var children []models.EmployeeChild
	result := r.db.WithContext(ctx).
		Where("employee_details_id = ?", detailsID).
		Order("birth_date").
		Find(&children)
	if result.Error != nil {
		return nil, result.Error
	}
	return children, nil
}

func (r *Repository) GetRoleAssignment(ctx context.Context, companyID, userID uuid.UUID) (*models.RoleAssignment, error) {
	var role models.RoleAssignment
	result := r.db.WithContext(ctx).First(&role, "company_id = ? AND user_id = ?", companyID, userID)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &role, nil
}

func (r *Repository) CreateRoleAssignment(ctx context.Context, role *models.RoleAssignment) error {
	result := r.db.WithContext(ctx).Create(role)
	if result.Error != nil {
		return translate(result.Error)
	}
	return nil
}

func (r *Repository) UpdateRoleAssignment(ctx context.Context, id uuid.UUID, role models.Role) error {
	result := r.db.WithContext(ctx).Model(&models.RoleAssignment{}).
		Where("id = ?", id).
		Update("role", role)

	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ListCustomerCompanies returns id and name of every customer company of
// the organization.
func (r *Repository) ListCustomerCompanies(ctx context.Context, companyID uuid.UUID) ([]models.CustomerCompany, error) {
	var companies []models.CustomerCompany
	result := r.db.WithContext(ctx).
		Select("id", "name").
		Where("company_id = ?", companyID).
		Order("name").
		Find(&companies)
	if result.Error != nil {
		return nil, result.Error
	}
	return companies, nil
}

// ListContactNames returns id, first and last name of every contact of the
// organization.
func (r *Repository) ListContactNames(ctx context.Context, companyID uuid.UUID) ([]models.Contact, error) {
	var contacts []models.Contact
	result := r.db.WithContext(ctx).
		Select("id", "first_name", "last_name").
		Where("company_id = ?", companyID).
		Order("last_name, first_name").
		Find(&contacts)
	if result.Error != nil {
		return nil, result.Error
	}
	return contacts, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return e.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", e.ErrConflict, err)
	default:
		return err
	}
}
