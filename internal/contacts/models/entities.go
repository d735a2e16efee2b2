package models

import (
	"github.com/google/uuid"
)

// Organization is the tenant that owns every other record. The service
// resolves it from the authenticated user through OwnerID.
type Organization struct {
	Base
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	Name    string    `gorm:"not null" json:"name"`
}

func (Organization) TableName() string {
	return "companies"
}

// CustomerCompany is a client company of an organization.
type CustomerCompany struct {
	Base
	CompanyID uuid.UUID `gorm:"type:uuid;index;not null" json:"company_id"`
	Name      string    `gorm:"not null" json:"name"`
}

func (CustomerCompany) TableName() string {
	return "customer_companies"
}

// Contact is a person entry of the CRM: a customer contact, a private
// customer or an employee.
type Contact struct {
	Base
	CompanyID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"company_id"`
	CustomerCompanyID *uuid.UUID `gorm:"type:uuid;index" json:"customer_company_id,omitempty"`
	FirstName         string     `gorm:"not null" json:"first_name"`
	LastName          string     `gorm:"not null" json:"last_name"`
	Email             *string    `json:"email,omitempty"`
	Phone             *string    `json:"phone,omitempty"`
	Mobile            *string    `json:"mobile,omitempty"`
	Address           *string    `json:"address,omitempty"`
	PostalCode        *string    `json:"postal_code,omitempty"`
	City              *string    `json:"city,omitempty"`
	Country           *string    `json:"country,omitempty"`
	ContactType       string     `gorm:"not null" json:"contact_type"`
	IsEmployee        bool       `gorm:"not null;default:false" json:"is_employee"`
	IsPrivateCustomer bool       `gorm:"not null;default:false" json:"is_private_customer"`
	IsPrimaryContact  bool       `gorm:"not null;default:false" json:"is_primary_contact"`
	Status            *string    `json:"status,omitempty"`
	Notes             *string    `json:"notes,omitempty"`

	Company *Organization `gorm:"foreignKey:CompanyID" json:"-"`
}

func (Contact) TableName() string {
	return "contact_persons"
}

// EmployeeDetails holds the HR attributes of a contact flagged as employee.
// There is at most one row per contact.
type EmployeeDetails struct {
	Base
	ContactPersonID       uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"contact_person_id"`
	CompanyID             uuid.UUID      `gorm:"type:uuid;index;not null" json:"company_id"`
	BirthDate             *Date          `gorm:"type:date" json:"birth_date,omitempty"`
	BirthPlace            *string        `json:"birth_place,omitempty"`
	Nationality           *string        `json:"nationality,omitempty"`
	CurrentAddress        *string        `json:"current_address,omitempty"`
	AddressSince          *Date          `gorm:"type:date" json:"address_since,omitempty"`
	OriginCountry         *string        `json:"origin_country,omitempty"`
	PermitType            *PermitType    `gorm:"type:varchar(2)" json:"permit_type,omitempty"`
	AHVNumber             *string        `gorm:"column:ahv_number" json:"ahv_number,omitempty"`
	MaritalStatus         *MaritalStatus `gorm:"type:varchar(32)" json:"marital_status,omitempty"`
	TaxResidence          *bool          `json:"tax_residence,omitempty"`
	EmergencyContactName  *string        `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string        `json:"emergency_contact_phone,omitempty"`
	EmploymentStartDate   *Date          `gorm:"type:date" json:"employment_start_date,omitempty"`
	HourlyWage            *float64       `json:"hourly_wage,omitempty"`
	IBAN                  *string        `gorm:"column:iban" json:"iban,omitempty"`
	EmploymentRate        *float64       `json:"employment_rate,omitempty"`
	DocumentURL           *string        `gorm:"column:document_url" json:"document_url,omitempty"`

	ContactPerson *Contact `gorm:"foreignKey:ContactPersonID;constraint:OnDelete:CASCADE" json:"-"`
}

func (EmployeeDetails) TableName() string {
	return "employee_details"
}

// EmployeeChild is a dependent of an employee.
type EmployeeChild struct {
	Base
	EmployeeDetailsID uuid.UUID `gorm:"type:uuid;index;not null" json:"employee_details_id"`
	FirstName         string    `gorm:"not null" json:"first_name"`
	LastName          string    `gorm:"not null" json:"last_name"`
	BirthDate         Date      `gorm:"type:date" json:"birth_date"`

	EmployeeDetails *EmployeeDetails `gorm:"foreignKey:EmployeeDetailsID;constraint:OnDelete:CASCADE" json:"-"`
}

func (EmployeeChild) TableName() string {
	return "employee_children"
}

// RoleAssignment binds a user to a role inside an organization.
type RoleAssignment struct {
	Base
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_user_company" json:"user_id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_user_company" json:"company_id"`
	Role      Role      `gorm:"type:varchar(32);not null" json:"role"`
}

func (RoleAssignment) TableName() string {
	return "user_roles"
}
