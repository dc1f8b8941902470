package departments

import (
	"shifa-quality/app/routes/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupDepartmentsRoutes(app *fiber.App) {
	api := app.Group("/api/departments", auth.AuthMiddleware)

	api.Get("/", GetDepartmentsAPI)
	api.Post("/", auth.RoleMiddleware("admin"), CreateDepartmentAPI)
	api.Put("/:id", auth.RoleMiddleware("admin"), UpdateDepartmentAPI)
	api.Delete("/:id", auth.RoleMiddleware("admin"), DeleteDepartmentAPI)
}
