package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"authcore/internal/auth"
	"authcore/internal/model"
)

func newRolesCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "roles <email|id>",
		Short: "Show the roles of a user",
		Args:  cobra.ExactArgs(1),
		RunE: r.wrap(func(cmd *cobra.Command, e *env, args []string) error {
			user, err := e.users.FindUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			roles, err := e.roles.GetUserRoles(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", user.Email, strings.Join(roles, ","))
			return nil
		}),
	}
}

func newGrantCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <email|id> <role>",
		Short: "Grant a role (" + roleNames() + ")",
		Args:  cobra.ExactArgs(2),
		RunE: r.wrap(func(cmd *cobra.Command, e *env, args []string) error {
			return grant(cmd, e, args[0], args[1])
		}),
	}
}

func roleNames() string {
	names := make([]string, len(auth.AllRoles))
	for i, role := range auth.AllRoles {
		names[i] = string(role)
	}
	return strings.Join(names, ", ")
}

func newMakeAdminCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "make-admin <email|id>",
		Short: "Grant the ADMIN role",
		Args:  cobra.ExactArgs(1),
		RunE: r.wrap(func(cmd *cobra.Command, e *env, args []string) error {
			return grant(cmd, e, args[0], string(auth.RoleAdmin))
		}),
	}
}

func grant(cmd *cobra.Command, e *env, ref, role string) error {
	user, err := e.users.FindUser(cmd.Context(), ref)
	if err != nil {
		return err
	}
	role = strings.ToUpper(role)
	if err := e.roles.AssignRole(cmd.Context(), user.ID, role, nil); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Role %s assigned to user %s\n", role, user.Email)
	return nil
}

func newRevokeRoleCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-role <email|id> <role>",
		Short: "Remove a role",
		Args:  cobra.ExactArgs(2),
		RunE: r.wrap(func(cmd *cobra.Command, e *env, args []string) error {
			user, err := e.users.FindUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			role := strings.ToUpper(args[1])
			if err := e.roles.RemoveRole(cmd.Context(), user.ID, role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Role %s removed from user %s\n", role, user.Email)
			return nil
		}),
	}
}

func newUsersCmd(r *runner) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: r.wrap(func(cmd *cobra.Command, e *env, args []string) error {
			result, err := e.users.ListUsers(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tACTIVE\tROLES\tACCOUNTS\tTOKENS")
			for _, u := range result.Users {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%d\t%d\n",
					u.ID, u.Email, u.IsActive, strings.Join(u.Roles, ","), u.AccountsCount, u.TokensCount)
			}
			fmt.Fprintf(w, "page %d of %d, %d users\n", result.Page, result.TotalPages, result.Total)
			return w.Flush()
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number, from 1")
	cmd.Flags().IntVar(&limit, "limit", 20, "Rows per page")
	return cmd
}

func newSetActiveCmd(r *runner, use string, active bool) *cobra.Command {
	short := "Disable a user; their tokens stop validating"
	if active {
		short = "Re-enable a disabled user"
	}
	return &cobra.Command{
		Use:   use + " <email|id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: r.wrap(func(cmd *cobra.Command, e *env, args []string) error {
			user, err := e.users.FindUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := e.users.SetActive(cmd.Context(), user.ID, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", user.Email, active)
			return nil
		}),
	}
}

func newRevokeTokensCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-tokens <email|id>",
		Short: "Revoke every active token of a user",
		Args:  cobra.ExactArgs(1),
		RunE: r.wrap(func(cmd *cobra.Command, e *env, args []string) error {
			user, err := e.users.FindUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			n, err := e.tokens.RevokeAllUserTokens(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d tokens for %s\n", n, user.Email)
			return nil
		}),
	}
}

func newCleanupCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-tokens",
		Short: "Delete expired inactive tokens",
		Args:  cobra.NoArgs,
		RunE: r.wrap(func(cmd *cobra.Command, e *env, args []string) error {
			n, err := e.tokens.CleanupExpiredTokens(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleaned up %d expired tokens\n", n)
			return nil
		}),
	}
}

func newEventsCmd(r *runner) *cobra.Command {
	var (
		ref   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent auth events",
		Args:  cobra.NoArgs,
		RunE: r.wrap(func(cmd *cobra.Command, e *env, args []string) error {
			var userID *uuid.UUID
			if ref != "" {
				user, err := e.users.FindUser(cmd.Context(), ref)
				if err != nil {
					return err
				}
				userID = &user.ID
			}
			events, err := e.events.ListRecent(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tUSER\tPROVIDER\tDETAILS")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					ev.CreatedAt.UTC().Format(time.RFC3339), ev.Event, eventUser(ev), ev.Provider, string(ev.Metadata))
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVar(&ref, "user", "", "Only events of this user (email or id)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events")
	return cmd
}

func eventUser(ev model.AuthEvent) string {
	if ev.UserID == nil {
		return "-"
	}
	return ev.UserID.String()
}
