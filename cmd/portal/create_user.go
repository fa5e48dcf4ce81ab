package main

import (
	"errors"
	"fmt"

	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/domain/dto"
	"github.com/ougirez/muniportal/internal/service/auth"
	"github.com/ougirez/muniportal/internal/service/user"
	"github.com/spf13/cobra"
)

// systemActor: от его имени CLI создаёт учётки.
var systemActor = domain.Admin{ID: 0}

func createUserCmd() *cobra.Command {
	var (
		role         string
		municipality int64
		password     string
		noReset      bool
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an admin, governor or operator account",
		Example: `  portal create-user --role admin --password 's3cret-pass'
  portal create-user --role operator --municipality 42 --password 'initial-pass'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("--password is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			authService := auth.NewService(st, auth.Options{
				BcryptCost:     cfg.Auth.BcryptCost,
				MinPasswordLen: cfg.Auth.MinPasswordLen,
			})

			req := &dto.CreateUserRequest{Role: domain.Role(role), Password: password}
			if municipality > 0 {
				req.MunicipalityID = &municipality
			}
			if noReset {
				reset := false
				req.PasswordResetRequired = &reset
			}

			created, err := user.NewUserService(st, authService).Create(ctx, systemActor, req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", created.ID, created.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(domain.RoleOperator), "admin, governor or operator")
	cmd.Flags().Int64Var(&municipality, "municipality", 0, "municipality id, operators only")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().BoolVar(&noReset, "no-reset", false, "do not require a password change on first login")

	return cmd
}
