package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dimitrije/lectern-api/internal/config"
	"github.com/dimitrije/lectern-api/internal/database"
	"github.com/dimitrije/lectern-api/internal/models"
	"github.com/dimitrije/lectern-api/internal/services"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Println("Usage: set-role <email> <admin|teacher|student>")
		os.Exit(1)
	}

	email := os.Args[1]
	role, ok := models.ParseRole(os.Args[2])
	if !ok {
		log.Fatalf("Invalid role: %s", os.Args[2])
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	user, err := services.NewUserService(db).UpdateRoleByEmail(ctx, email, role)
	if errors.Is(err, services.ErrUserNotFound) {
		log.Fatalf("No user found with email: %s", email)
	}
	if err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}

	fmt.Printf("Set role of %s to %s\n", user.Email, user.Role)
}
