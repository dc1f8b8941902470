package departments

import (
	"shifa-quality/app/config"
	"shifa-quality/app/database"
	"shifa-quality/app/models"

	"github.com/gofiber/fiber/v2"
)

func GetDepartmentsAPI(c *fiber.Ctx) error {
	departments, err := database.GetDepartments(config.GetDB())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch departments"})
	}
	return c.JSON(fiber.Map{
		"departments": departments,
		"count":       len(departments),
	})
}

func CreateDepartmentAPI(c *fiber.Ctx) error {
	type CreateDepartmentRequest struct {
		Name        string  `json:"name"`
		Code        string  `json:"code"`
		Description *string `json:"description"`
		HeadUserID  *string `json:"head_user_id"`
	}

	var req CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	if req.Name == "" || req.Code == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Name and code are required"})
	}

	department := &models.Department{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		HeadUserID:  req.HeadUserID,
	}

	if err := database.CreateDepartment(config.GetDB(), department); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create department"})
	}

	return c.Status(201).JSON(department)
}

func UpdateDepartmentAPI(c *fiber.Ctx) error {
	departmentID := c.Params("id")
	if departmentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Department ID is required"})
	}

	type UpdateDepartmentRequest struct {
		Name        string  `json:"name"`
		Code        string  `json:"code"`
		Description *string `json:"description"`
		HeadUserID  *string `json:"head_user_id"`
	}

	var req UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	if req.Name == "" || req.Code == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Name and code are required"})
	}

	department := &models.Department{
		ID:          departmentID,
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		HeadUserID:  req.HeadUserID,
	}

	if err := database.UpdateDepartment(config.GetDB(), department); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to update department"})
	}

	return c.JSON(department)
}

func DeleteDepartmentAPI(c *fiber.Ctx) error {
	departmentID := c.Params("id")
	if departmentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Department ID is required"})
	}

	if err := database.DeactivateDepartment(config.GetDB(), departmentID); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to deactivate department"})
	}

	return c.JSON(fiber.Map{"message": "Department deactivated"})
}
