package models

// PermitType is the Swiss residence permit category of an employee.
type PermitType string

const (
	PermitSwiss PermitType = "CH"
	PermitB     PermitType = "B"
	PermitC     PermitType = "C"
	PermitF     PermitType = "F"
	PermitL     PermitType = "L"
)

// MaritalStatus of an employee.
type MaritalStatus string

const (
	MaritalSingle                MaritalStatus = "single"
	MaritalMarried               MaritalStatus = "married"
	MaritalDivorced              MaritalStatus = "divorced"
	MaritalWidowed               MaritalStatus = "widowed"
	MaritalRegisteredPartnership MaritalStatus = "registered_partnership"
	MaritalSeparated             MaritalStatus = "separated"
)

// Role is the permission level of a user inside an organization.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleAdmin       Role = "admin"
	RoleSiteLead    Role = "site_lead"
	RoleFieldWorker Role = "field_worker"
)
