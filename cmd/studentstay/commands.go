package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/studentstay/internal/application"
	"github.com/example/studentstay/internal/metrics"
	"github.com/example/studentstay/internal/persistence/sqlite"
)

// withServices opens the migrated storage, builds the services and runs fn.
func (c *cli) withServices(ctx context.Context, fn func(*services) error) error {
	storage, err := c.openStorage(ctx, true)
	if err != nil {
		return err
	}
	defer storage.Close()

	svc, err := newServices(c.cfg, storage, metrics.New(), time.Now, c.logger)
	if err != nil {
		return err
	}
	return fn(svc)
}

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := c.openStorage(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer storage.Close()
			fmt.Fprintln(c.stdout, "migrations applied")
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := c.openStorage(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer storage.Close()
			return c.printMigrationStatus(cmd.Context(), storage)
		},
	})
	return cmd
}

func (c *cli) printMigrationStatus(ctx context.Context, storage *sqlite.Storage) error {
	status, err := storage.MigrationStatus(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS\tDETAIL")
	for _, applied := range status.AppliedMigrations {
		fmt.Fprintf(w, "%s\tapplied\t%s\n", applied.Version, applied.AppliedAt.Format(time.RFC3339))
	}
	for _, pending := range status.PendingMigrations {
		fmt.Fprintf(w, "%s\tpending\t%s\n", pending.Version, pending.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "current version: %s, pending: %d\n", status.CurrentVersion, status.PendingCount)
	return nil
}

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer accounts",
	}

	var params application.RegisterUserParams
	var verified bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *services) error {
				user, err := svc.users.RegisterUser(cmd.Context(), application.SystemPrincipal, params)
				if err != nil {
					return err
				}
				if verified {
					if user, err = svc.users.VerifyUser(cmd.Context(), application.SystemPrincipal, user.ID); err != nil {
						return err
					}
				}
				c.printUser(user)
				return nil
			})
		},
	}
	create.Flags().StringVar(&params.Email, "email", "", "account email")
	create.Flags().StringVar(&params.Password, "password", "", "initial password")
	create.Flags().StringVar(&params.DisplayName, "name", "", "display name")
	create.Flags().StringVar(&params.Role, "role", string(application.RoleTenant), "tenant, landlord or admin")
	create.Flags().BoolVar(&verified, "verified", false, "mark the account verified immediately")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	mutation := func(use, short string, apply func(context.Context, *services, string) (application.User, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <user-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withServices(cmd.Context(), func(svc *services) error {
					user, err := apply(cmd.Context(), svc, args[0])
					if err != nil {
						return err
					}
					c.printUser(user)
					return nil
				})
			},
		}
	}

	role := &cobra.Command{
		Use:   "role <user-id> <role>",
		Short: "Change the role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *services) error {
				user, err := svc.users.ChangeRole(cmd.Context(), application.SystemPrincipal, args[0], args[1])
				if err != nil {
					return err
				}
				c.printUser(user)
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *services) error {
				users, err := svc.users.ListUsers(cmd.Context(), application.SystemPrincipal)
				if err != nil {
					return err
				}
				for _, user := range users {
					c.printUser(user)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(
		create,
		mutation("verify", "Mark an account verified", func(ctx context.Context, svc *services, id string) (application.User, error) {
			return svc.users.VerifyUser(ctx, application.SystemPrincipal, id)
		}),
		mutation("lock", "Lock an account", func(ctx context.Context, svc *services, id string) (application.User, error) {
			return svc.users.LockUser(ctx, application.SystemPrincipal, id)
		}),
		mutation("unlock", "Unlock an account and clear failed logins", func(ctx context.Context, svc *services, id string) (application.User, error) {
			return svc.users.UnlockUser(ctx, application.SystemPrincipal, id)
		}),
		role,
		list,
	)
	return cmd
}

func (c *cli) printUser(user application.User) {
	fmt.Fprintf(c.stdout, "%s\t%s\t%s\tverified=%t\tlocked=%t\n", user.ID, user.Email, user.Role, user.IsVerified, user.IsLocked)
}

func (c *cli) propertyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Manage properties",
	}

	var input application.PropertyInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a property for a landlord",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *services) error {
				property, err := svc.catalog.CreateProperty(cmd.Context(), application.SystemPrincipal, input)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.stdout, "%s\t%s\t%s\n", property.ID, property.LandlordID, property.Title)
				return nil
			})
		},
	}
	create.Flags().StringVar(&input.LandlordID, "landlord", "", "owning landlord id")
	create.Flags().StringVar(&input.Title, "title", "", "listing title")
	create.Flags().StringVar(&input.Address, "address", "", "street address")
	_ = create.MarkFlagRequired("landlord")
	_ = create.MarkFlagRequired("title")

	cmd.AddCommand(create)
	return cmd
}

func (c *cli) roomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manage rooms",
	}

	var input application.RoomInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Add an available room to a property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *services) error {
				room, err := svc.catalog.CreateRoom(cmd.Context(), application.SystemPrincipal, input)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.stdout, "%s\t%s\t%s\t%d\n", room.ID, room.PropertyID, room.Name, room.MonthlyPrice)
				return nil
			})
		},
	}
	create.Flags().StringVar(&input.PropertyID, "property", "", "property id")
	create.Flags().StringVar(&input.Name, "name", "", "room name")
	create.Flags().Int64Var(&input.MonthlyPrice, "price", 0, "monthly price in whole currency units")
	_ = create.MarkFlagRequired("property")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("price")

	status := &cobra.Command{
		Use:   "status <room-id> <available|maintenance>",
		Short: "Take a room out of service or return it to the market",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *services) error {
				room, err := svc.catalog.SetRoomStatus(cmd.Context(), application.SystemPrincipal, args[0], application.RoomStatus(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(c.stdout, "%s\t%s\t%s\n", room.ID, room.Name, room.Status)
				return nil
			})
		},
	}

	cmd.AddCommand(create, status)
	return cmd
}
