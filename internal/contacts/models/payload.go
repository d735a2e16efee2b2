package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	e "github.com/gartstein/crm/internal/contacts/errors"
	"github.com/gartstein/crm/internal/contacts/validation"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validation.New()
	// Dates are checked as their wire form so that required rejects the zero day.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Date); ok && !d.IsZero() {
			return d.String()
		}
		return nil
	}, Date{})
	if err := v.RegisterValidation("set_uuid", func(fl validator.FieldLevel) bool {
		id, ok := fl.Field().Interface().(uuid.UUID)
		return ok && id != uuid.Nil
	}); err != nil {
		panic(err)
	}
	return v
}

// SaveContactRequest is the body of a save-contact submission.
type SaveContactRequest struct {
	Contact         ContactInput          `json:"contact"`
	EmployeeDetails *EmployeeDetailsInput `json:"employee_details,omitempty"`
	Children        []ChildInput          `json:"children,omitempty" validate:"dive"`
	Role            *Role                 `json:"role,omitempty" validate:"omitempty,oneof=owner admin site_lead field_worker|len=0"`
}

// ContactInput carries the contact fields. A nil optional field is left
// untouched on update.
type ContactInput struct {
	ID                *uuid.UUID `json:"id,omitempty" validate:"omitempty,set_uuid"`
	FirstName         string     `json:"first_name" validate:"required,notblank"`
	LastName          string     `json:"last_name" validate:"required,notblank"`
	Email             *string    `json:"email,omitempty" validate:"omitempty,email|len=0"`
	Phone             *string    `json:"phone,omitempty"`
	Mobile            *string    `json:"mobile,omitempty"`
	Address           *string    `json:"address,omitempty"`
	PostalCode        *string    `json:"postal_code,omitempty"`
	City              *string    `json:"city,omitempty"`
	Country           *string    `json:"country,omitempty"`
	ContactType       string     `json:"contact_type" validate:"required,notblank"`
	IsEmployee        bool       `json:"is_employee"`
	IsPrivateCustomer bool       `json:"is_private_customer"`
	IsPrimaryContact  *bool      `json:"is_primary_contact,omitempty"`
	CustomerCompanyID *uuid.UUID `json:"customer_company_id,omitempty"`
	Status            *string    `json:"status,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
}

// EmployeeDetailsInput carries the HR fields of an employee.
type EmployeeDetailsInput struct {
	BirthDate             *Date          `json:"birth_date,omitempty"`
	BirthPlace            *string        `json:"birth_place,omitempty"`
	Nationality           *string        `json:"nationality,omitempty"`
	CurrentAddress        *string        `json:"current_address,omitempty"`
	AddressSince          *Date          `json:"address_since,omitempty"`
	OriginCountry         *string        `json:"origin_country,omitempty"`
	PermitType            *PermitType    `json:"permit_type,omitempty" validate:"omitempty,oneof=CH B C F L|len=0"`
	AHVNumber             *string        `json:"ahv_number,omitempty" validate:"omitempty,ahv|len=0"`
	MaritalStatus         *MaritalStatus `json:"marital_status,omitempty" validate:"omitempty,oneof=single married divorced widowed registered_partnership separated|len=0"`
	TaxResidence          *bool          `json:"tax_residence,omitempty"`
	EmergencyContactName  *string        `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string        `json:"emergency_contact_phone,omitempty"`
	EmploymentStartDate   *Date          `json:"employment_start_date,omitempty"`
	HourlyWage            *float64       `json:"hourly_wage,omitempty" validate:"omitempty,gte=0"`
	IBAN                  *string        `json:"iban,omitempty" validate:"omitempty,iban|len=0"`
	EmploymentRate        *float64       `json:"employment_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	DocumentURL           *string        `json:"document_url,omitempty"`
}

// ChildInput is a dependent submitted together with new employee details.
type ChildInput struct {
	FirstName string `json:"first_name" validate:"required,notblank"`
	LastName  string `json:"last_name" validate:"required,notblank"`
	BirthDate Date   `json:"birth_date" validate:"required"`
}

// SaveContactResult is returned after a successful save.
type SaveContactResult struct {
	Success   bool      `json:"success"`
	ContactID uuid.UUID `json:"contactId"`
	Message   string    `json:"message"`
	Created   bool      `json:"-"`
}

// ContactView is a stored contact together with its HR data.
type ContactView struct {
	Contact         *Contact         `json:"contact"`
	EmployeeDetails *EmployeeDetails `json:"employee_details,omitempty"`
	Children        []EmployeeChild  `json:"children,omitempty"`
}

// Validate rejects malformed payloads before anything is written. The
// returned error wraps ErrInvalidInput and lists every problem found.
func (r *SaveContactRequest) Validate() error {
	err := payloadValidator.Struct(r)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return fmt.Errorf("%w: %s", e.ErrInvalidInput, strings.Join(validation.Problems(errs), "; "))
	}
	return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
}

// RequestedRole returns the submitted role. An empty role counts as absent.
func (r *SaveContactRequest) RequestedRole() (Role, bool) {
	if r.Role == nil || *r.Role == "" {
		return "", false
	}
	return *r.Role, true
}

// NewContact builds the row inserted on the create path.
func (c ContactInput) NewContact(companyID uuid.UUID) *Contact {
	contact := &Contact{
		CompanyID:         companyID,
		CustomerCompanyID: c.CustomerCompanyID,
		FirstName:         strings.TrimSpace(c.FirstName),
		LastName:          strings.TrimSpace(c.LastName),
		Email:             c.Email,
		Phone:             c.Phone,
		Mobile:            c.Mobile,
		Address:           c.Address,
		PostalCode:        c.PostalCode,
		City:              c.City,
		Country:           c.Country,
		ContactType:       c.ContactType,
		IsEmployee:        c.IsEmployee,
		IsPrivateCustomer: c.IsPrivateCustomer,
		Status:            c.Status,
		Notes:             c.Notes,
	}
	if c.IsPrimaryContact != nil {
		contact.IsPrimaryContact = *c.IsPrimaryContact
	}
	return contact
}

// Updates returns the column set written on the update path. Required
// fields and flags are always written, optional ones only when supplied.
func (c ContactInput) Updates() map[string]interface{} {
	cols := map[string]interface{}{
		"first_name":          strings.TrimSpace(c.FirstName),
		"last_name":           strings.TrimSpace(c.LastName),
		"contact_type":        c.ContactType,
		"is_employee":         c.IsEmployee,
		"is_private_customer": c.IsPrivateCustomer,
	}
	setString(cols, "email", c.Email)
	setString(cols, "phone", c.Phone)
	setString(cols, "mobile", c.Mobile)
	setString(cols, "address", c.Address)
	setString(cols, "postal_code", c.PostalCode)
	setString(cols, "city", c.City)
	setString(cols, "country", c.Country)
	setString(cols, "status", c.Status)
	setString(cols, "notes", c.Notes)
	if c.IsPrimaryContact != nil {
		cols["is_primary_contact"] = *c.IsPrimaryContact
	}
	if c.CustomerCompanyID != nil {
		cols["customer_company_id"] = *c.CustomerCompanyID
	}
	return cols
}

// NewEmployeeDetails builds the row inserted the first time HR details are
// submitted for a contact.
func (d EmployeeDetailsInput) NewEmployeeDetails(contactID, companyID uuid.UUID) *EmployeeDetails {
	return &EmployeeDetails{
		ContactPersonID:       contactID,
		CompanyID:             companyID,
		BirthDate:             d.BirthDate,
		BirthPlace:            d.BirthPlace,
		Nationality:           d.Nationality,
		CurrentAddress:        d.CurrentAddress,
		AddressSince:          d.AddressSince,
		OriginCountry:         d.OriginCountry,
		PermitType:            d.PermitType,
		AHVNumber:             d.AHVNumber,
		MaritalStatus:         d.MaritalStatus,
		TaxResidence:          d.TaxResidence,
		EmergencyContactName:  d.EmergencyContactName,
		EmergencyContactPhone: d.EmergencyContactPhone,
		EmploymentStartDate:   d.EmploymentStartDate,
		HourlyWage:            d.HourlyWage,
		IBAN:                  normalizedIBAN(d.IBAN),
		EmploymentRate:        d.EmploymentRate,
		DocumentURL:           d.DocumentURL,
	}
}

// Updates returns the supplied HR columns for the update path.
func (d EmployeeDetailsInput) Updates() map[string]interface{} {
	cols := map[string]interface{}{}
	setDate(cols, "birth_date", d.BirthDate)
	setString(cols, "birth_place", d.BirthPlace)
	setString(cols, "nationality", d.Nationality)
	setString(cols, "current_address", d.CurrentAddress)
	setDate(cols, "address_since", d.AddressSince)
	setString(cols, "origin_country", d.OriginCountry)
	if d.PermitType != nil {
		cols["permit_type"] = string(*d.PermitType)
	}
	setString(cols, "ahv_number", d.AHVNumber)
	if d.MaritalStatus != nil {
		cols["marital_status"] = string(*d.MaritalStatus)
	}
	if d.TaxResidence != nil {
		cols["tax_residence"] = *d.TaxResidence
	}
	setString(cols, "emergency_contact_name", d.EmergencyContactName)
	setString(cols, "emergency_contact_phone", d.EmergencyContactPhone)
	setDate(cols, "employment_start_date", d.EmploymentStartDate)
	if d.HourlyWage != nil {
		cols["hourly_wage"] = *d.HourlyWage
	}
	setString(cols, "iban", normalizedIBAN(d.IBAN))
	if d.EmploymentRate != nil {
		cols["employment_rate"] = *d.EmploymentRate
	}
	setString(cols, "document_url", d.DocumentURL)
	return cols
}

// NewChildren builds the rows of a children batch for the given details row.
func NewChildren(detailsID uuid.UUID, children []ChildInput) []EmployeeChild {
	rows := make([]EmployeeChild, 0, len(children))
	for _, child := range children {
		rows = append(rows, EmployeeChild{
			EmployeeDetailsID: detailsID,
			FirstName:         strings.TrimSpace(child.FirstName),
			LastName:          strings.TrimSpace(child.LastName),
			BirthDate:         child.BirthDate,
		})
	}
	return rows
}

func setString(cols map[string]interface{}, column string, v *string) {
	if v != nil {
		cols[column] = *v
	}
}

func setDate(cols map[string]interface{}, column string, v *Date) {
	if v != nil {
		cols[column] = *v
	}
}

func normalizedIBAN(iban *string) *string {
	if iban == nil || *iban == "" {
		return iban
	}
	normalized := validation.NormalizeIBAN(*iban)
	return &normalized
}
