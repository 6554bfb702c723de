package models

import (
	"gorm.io/gorm"
)

type Employee struct {
	gorm.Model
	FirstName     string                `json:"firstName"`
	LastName      string                `json:"lastName"`
	Email         string                `json:"email" gorm:"uniqueIndex"`
	PhoneNumber   string                `json:"phoneNumber"`
	Password      string                `json:"-"`
	Department    string                `json:"department"`
	JobTitle      string                `json:"jobTitle"`
	AccountStatus string                `json:"accountStatus" gorm:"type:varchar(20);default:invited;index"` // invited, active, suspended
	Role          string                `json:"role" gorm:"type:varchar(20);default:employee;index"`         // employee, admin, super_admin
	Verifications []AddressVerification `json:"verifications,omitempty" gorm:"foreignKey:EmployeeID;references:ID"`
}
