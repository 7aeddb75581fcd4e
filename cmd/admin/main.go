// Package main provides account administration utilities for Inkwell.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/joho/godotenv"
)

const usage = `Usage:
  admin promote <user_id>      Grant the admin role
  admin demote <user_id>       Revoke the admin role
  admin deactivate <user_id>   Block the account from authenticating
  admin activate <user_id>     Restore a deactivated account
  admin list-admins            List all admins`

var errUsage = errors.New(usage)

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := run(context.Background(), repository.NewUserRepository(db), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, users repository.UserRepository, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	if args[0] == "list-admins" {
		return listAdmins(ctx, users, out)
	}

	if len(args) < 2 {
		return errUsage
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid user id %q", args[1])
	}

	var apply func(*models.User) (changed bool, verb string)
	switch args[0] {
	case "promote":
		apply = func(u *models.User) (bool, string) {
			changed := u.Role != models.RoleAdmin
			u.Role = models.RoleAdmin
			return changed, "promoted to admin"
		}
	case "demote":
		apply = func(u *models.User) (bool, string) {
			changed := u.Role != models.RoleUser
			u.Role = models.RoleUser
			return changed, "demoted to user"
		}
	case "deactivate":
		apply = func(u *models.User) (bool, string) {
			changed := u.IsActive
			u.IsActive = false
			return changed, "deactivated"
		}
	case "activate":
		apply = func(u *models.User) (bool, string) {
			changed := !u.IsActive
			u.IsActive = true
			return changed, "activated"
		}
	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}

	user, err := users.GetByID(ctx, uint(id))
	if err != nil {
		if models.StatusCode(err) == http.StatusNotFound {
			return fmt.Errorf("user with ID %d not found", id)
		}
		return err
	}

	changed, verb := apply(user)
	if !changed {
		fmt.Fprintf(out, "%s (ID: %d) is already %s\n", user.Username, user.ID, verb)
		return nil
	}
	if err := users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	fmt.Fprintf(out, "%s (ID: %d) %s\n", user.Username, user.ID, verb)
	return nil
}

func listAdmins(ctx context.Context, users repository.UserRepository, out io.Writer) error {
	role := models.RoleAdmin
	admins, _, err := users.List(ctx, repository.UserQuery{Role: &role, Limit: 1000})
	if err != nil {
		return fmt.Errorf("failed to fetch admins: %w", err)
	}
	if len(admins) == 0 {
		fmt.Fprintln(out, "No admins found")
		return nil
	}
	for _, a := range admins {
		status := "active"
		if !a.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", a.ID, a.Username, a.Email, status)
	}
	return nil
}
