package routes

import (
	"strings"

	"address-verify-server/models"
	"address-verify-server/storage"
	"address-verify-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"
)

func Register(ctx iris.Context) {
	var employeeInput RegisterEmployeeInput
	err := ctx.ReadJSON(&employeeInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var newEmployee models.Employee
	employeeExists, employeeExistsErr := getAndHandleEmployeeExists(&newEmployee, employeeInput.Email)
	if employeeExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if employeeExists {
		utils.CreateEmailAlreadyRegistered(ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(employeeInput.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	newEmployee = models.Employee{
		FirstName:  employeeInput.FirstName,
		LastName:   employeeInput.LastName,
		Email:      strings.ToLower(employeeInput.Email),
		Password:   hashedPassword,
		Department: employeeInput.Department,
		JobTitle:   employeeInput.JobTitle,
	}

	storage.DB.Create(&newEmployee)

	returnEmployee(newEmployee, ctx)
}

func Login(ctx iris.Context) {
	var employeeInput LoginEmployeeInput
	err := ctx.ReadJSON(&employeeInput)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existingEmployee models.Employee
	errorMsg := "Invalid email or password."
	employeeExists, employeeExistsErr := getAndHandleEmployeeExists(&existingEmployee, employeeInput.Email)
	if employeeExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !employeeExists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingEmployee.Password), []byte(employeeInput.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	returnEmployee(existingEmployee, ctx)
}

func GetEmployee(ctx iris.Context) {
	employeeID := ctx.Values().Get("employeeID").(uint)

	var employee models.Employee
	if err := storage.DB.First(&employee, employeeID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":            employee.ID,
		"firstName":     employee.FirstName,
		"lastName":      employee.LastName,
		"email":         employee.Email,
		"department":    employee.Department,
		"jobTitle":      employee.JobTitle,
		"accountStatus": employee.AccountStatus,
	})
}

func getAndHandleEmployeeExists(employee *models.Employee, email string) (exists bool, err error) {
	employeeExistsQuery := storage.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(&employee)

	if employeeExistsQuery.Error != nil {
		return false, employeeExistsQuery.Error
	}

	return employeeExistsQuery.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (hashedPassword string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

func returnEmployee(employee models.Employee, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(employee.ID)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":            employee.ID,
		"firstName":     employee.FirstName,
		"lastName":      employee.LastName,
		"email":         employee.Email,
		"accountStatus": employee.AccountStatus,
		"accessToken":   string(tokenPair.AccessToken),
		"refreshToken":  string(tokenPair.RefreshToken),
	})
}

type RegisterEmployeeInput struct {
	FirstName  string `json:"firstName" validate:"required,max=256"`
	LastName   string `json:"lastName" validate:"required,max=256"`
	Email      string `json:"email" validate:"required,max=256,email"`
	Password   string `json:"password" validate:"required,min=8,max=256"`
	Department string `json:"department" validate:"max=256"`
	JobTitle   string `json:"jobTitle" validate:"max=256"`
}

type LoginEmployeeInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
