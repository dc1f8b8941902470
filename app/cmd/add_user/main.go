package main

import (
	"fmt"
	"os"

	"shifa-quality/app/config"
	"shifa-quality/app/database"
	"shifa-quality/app/models"
)

func main() {
	if len(os.Args) < 5 {
		fmt.Println("Usage: add_user <first_name> <last_name> <email> <password>")
		return
	}

	// Initialize database connection
	config.InitDB()
	db := config.GetDB()
	if db == nil {
		fmt.Println("Failed to connect to database")
		return
	}

	// Create user
	user := &models.User{
		FirstName: os.Args[1],
		LastName:  os.Args[2],
		Email:     os.Args[3],
		Password:  os.Args[4],
	}

	err := database.CreateUser(db, user)
	if err != nil {
		fmt.Printf("Error creating user: %v\n", err)
		return
	}

	fmt.Printf("User created successfully: %s %s (%s)\n", user.FirstName, user.LastName, user.Email)
}
