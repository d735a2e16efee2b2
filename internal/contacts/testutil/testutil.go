// Package testutil opens migrated in-memory databases and seeds the tenant
// rows that service and handler tests need.
package testutil

import (
	"testing"

	"github.com/gartstein/crm/internal/contacts/db"
	"github.com/gartstein/crm/internal/contacts/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated SQLite database that lives as long as the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(gdb), "failed to migrate test database")
	return gdb
}

// NewRepository returns a repository over a fresh database together with
// the raw handle for assertions.
func NewRepository(t *testing.T) (*db.Repository, *gorm.DB) {
	t.Helper()
	gdb := NewDB(t)
	return db.NewRepositoryFromDB(gdb), gdb
}

// CreateOrganization seeds an organization owned by ownerID.
func CreateOrganization(t *testing.T, gdb *gorm.DB, ownerID uuid.UUID) *models.Organization {
	t.Helper()
	org := &models.Organization{OwnerID: ownerID, Name: "Glanz Reinigung GmbH"}
	require.NoError(t, gdb.Create(org).Error)
	return org
}

// CreateCustomerCompany seeds a customer company of the organization.
func CreateCustomerCompany(t *testing.T, gdb *gorm.DB, orgID uuid.UUID, name string) *models.CustomerCompany {
	t.Helper()
	company := &models.CustomerCompany{CompanyID: orgID, Name: name}
	require.NoError(t, gdb.Create(company).Error)
	return company
}

// CreateContact seeds a customer contact of the organization.
func CreateContact(t *testing.T, gdb *gorm.DB, orgID uuid.UUID, first, last string) *models.Contact {
	t.Helper()
	contact := &models.Contact{
		CompanyID:   orgID,
		FirstName:   first,
		LastName:    last,
		ContactType: "customer",
	}
	require.NoError(t, gdb.Create(contact).Error)
	return contact
}
