package models

import (
	"testing"
	"time"

	e "github.com/gartstein/crm/internal/contacts/errors"
	"github.com/gartstein/crm/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *SaveContactRequest {
	return &SaveContactRequest{
		Contact: ContactInput{
			FirstName:   "Anna",
			LastName:    "Muster",
			ContactType: "employee",
			Email:       utils.Ptr("anna.muster@reinigung.ch"),
			IsEmployee:  true,
		},
		EmployeeDetails: &EmployeeDetailsInput{
			PermitType:     utils.Ptr(PermitB),
			AHVNumber:      utils.Ptr("756.9217.0769.85"),
			MaritalStatus:  utils.Ptr(MaritalMarried),
			IBAN:           utils.Ptr("CH93 0076 2011 6238 5295 7"),
			HourlyWage:     utils.Ptr(32.5),
			EmploymentRate: utils.Ptr(100.0),
		},
		Children: []ChildInput{
			{FirstName: "Lea", LastName: "Muster", BirthDate: NewDate(2015, time.June, 1)},
		},
		Role: utils.Ptr(RoleFieldWorker),
	}
}

func TestSaveContactRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *SaveContactRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(r *SaveContactRequest) {}},
		{
			name: "blank optional values",
			mutate: func(r *SaveContactRequest) {
				r.Contact.Email = utils.Ptr("")
				r.EmployeeDetails.PermitType = utils.Ptr(PermitType(""))
				r.EmployeeDetails.AHVNumber = utils.Ptr("")
				r.EmployeeDetails.IBAN = utils.Ptr("")
				r.Role = utils.Ptr(Role(""))
			},
		},
		{
			name:    "nil contact id",
			mutate:  func(r *SaveContactRequest) { r.Contact.ID = &uuid.Nil },
			wantErr: "contact.id failed set_uuid validation",
		},
		{
			name:    "blank first name",
			mutate:  func(r *SaveContactRequest) { r.Contact.FirstName = "  " },
			wantErr: "contact.first_name is required",
		},
		{
			name:    "missing contact type",
			mutate:  func(r *SaveContactRequest) { r.Contact.ContactType = "" },
			wantErr: "contact.contact_type is required",
		},
		{
			name:    "bad email",
			mutate:  func(r *SaveContactRequest) { r.Contact.Email = utils.Ptr("no-at-sign.ch") },
			wantErr: `contact.email "no-at-sign.ch" is not a valid email address`,
		},
		{
			name:    "unknown permit",
			mutate:  func(r *SaveContactRequest) { r.EmployeeDetails.PermitType = utils.Ptr(PermitType("X")) },
			wantErr: `employee_details.permit_type "X" is not one of CH, B, C, F, L`,
		},
		{
			name:    "unknown marital status",
			mutate:  func(r *SaveContactRequest) { r.EmployeeDetails.MaritalStatus = utils.Ptr(MaritalStatus("engaged")) },
			wantErr: `employee_details.marital_status "engaged" is not one of`,
		},
		{
			name:    "bad ahv",
			mutate:  func(r *SaveContactRequest) { r.EmployeeDetails.AHVNumber = utils.Ptr("756.9217.0769.84") },
			wantErr: `employee_details.ahv_number "756.9217.0769.84" is not a valid AHV number`,
		},
		{
			name:    "bad iban",
			mutate:  func(r *SaveContactRequest) { r.EmployeeDetails.IBAN = utils.Ptr("CH9300762011623852958") },
			wantErr: `employee_details.iban "CH9300762011623852958" is not a valid IBAN`,
		},
		{
			name:    "negative wage",
			mutate:  func(r *SaveContactRequest) { r.EmployeeDetails.HourlyWage = utils.Ptr(-1.0) },
			wantErr: "employee_details.hourly_wage must be at least 0",
		},
		{
			name:    "rate above 100",
			mutate:  func(r *SaveContactRequest) { r.EmployeeDetails.EmploymentRate = utils.Ptr(100.5) },
			wantErr: "employee_details.employment_rate must be at most 100",
		},
		{
			name:    "child without birth date",
			mutate:  func(r *SaveContactRequest) { r.Children = append(r.Children, ChildInput{FirstName: "Tim", LastName: "Muster"}) },
			wantErr: "children[1].birth_date is required",
		},
		{
			name:    "unknown role",
			mutate:  func(r *SaveContactRequest) { r.Role = utils.Ptr(Role("boss")) },
			wantErr: `role "boss" is not one of owner, admin, site_lead, field_worker`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, e.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveContactRequest_ValidateReportsEveryProblem(t *testing.T) {
	req := &SaveContactRequest{Children: []ChildInput{{}}}

	err := req.Validate()
	require.ErrorIs(t, err, e.ErrInvalidInput)
	for _, field := range []string{
		"contact.first_name",
		"contact.last_name",
		"contact.contact_type",
		"children[0].first_name",
		"children[0].last_name",
		"children[0].birth_date",
	} {
		assert.Contains(t, err.Error(), field+" is required")
	}
}

func TestSaveContactRequest_RequestedRole(t *testing.T) {
	req := &SaveContactRequest{}
	_, ok := req.RequestedRole()
	assert.False(t, ok)

	req.Role = utils.Ptr(Role(""))
	_, ok = req.RequestedRole()
	assert.False(t, ok, "empty role counts as absent")

	req.Role = utils.Ptr(RoleAdmin)
	role, ok := req.RequestedRole()
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)
}
