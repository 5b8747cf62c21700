package database

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"taskmaster-backend/shared/config"
	"taskmaster-backend/shared/database/models"
	utils "taskmaster-backend/shared/utils/auth"
)

// SeedDatabase bootstraps the root organization and super admin account.
// Safe to run repeatedly: existing rows are left untouched.
func SeedDatabase() error {
	log.Println("🌱 Checking database seed data...")

	cfg := config.GetConfig()

	org, created, err := seedRootOrganization(cfg.SuperAdminOrgName)
	if err != nil {
		return err
	}
	if created {
		log.Printf("✅ Root organization created: %s", org.Name)
	}

	if err := seedSuperAdmin(cfg.SuperAdminEmail, cfg.SuperAdminPassword, org); err != nil {
		return err
	}

	log.Println("✅ Database seed data is up to date")
	return nil
}

func seedRootOrganization(name string) (*models.Organization, bool, error) {
	var org models.Organization
	err := DB.Where("name = ?", name).First(&org).Error
	if err == nil {
		return &org, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	apiKey, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, false, err
	}

	org = models.Organization{
		Name:        name,
		Description: "Root organization",
		IsActive:    true,
		APIKey:      apiKey,
	}
	if err := DB.Create(&org).Error; err != nil {
		return nil, false, err
	}
	return &org, true, nil
}

func seedSuperAdmin(email, password string, org *models.Organization) error {
	var existing models.User
	err := DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:          email,
		Name:           "Super Admin",
		Password:       hashedPassword,
		Role:           models.RoleOwner,
		OrganizationID: org.ID,
		IsActive:       true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Super admin created: %s", email)
	return nil
}
