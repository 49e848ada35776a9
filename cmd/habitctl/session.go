package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
)

func newLoginCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username|email>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			s, err := opts.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := s.Login(cmd.Context(), args[0], password); err != nil {
				if errors.Is(err, authsdk.ErrInvalidCredentials) {
					return errors.New("invalid username or password")
				}
				return err
			}
			return printTokens(cmd.OutOrStdout(), s, opts.jsonOutput)
		},
	}
}

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and store its session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			s, err := opts.session(cmd.Context(), false)
			if err != nil {
				return err
			}
			err = s.Register(cmd.Context(), authsdk.RegisterRequest{
				Username: args[0],
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}
			return printTokens(cmd.OutOrStdout(), s, opts.jsonOutput)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.session(cmd.Context(), true)
			if err != nil {
				return err
			}
			me, err := s.Me(cmd.Context())
			if err != nil {
				return sessionError(err)
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, me)
			}
			fmt.Fprintf(out, "User ID:  %s\nUsername: %s\nEmail:    %s\nRoles:    %s\n",
				me.UserID, me.Username, me.Email, strings.Join(me.Roles, ", "))
			return nil
		},
	}
}

func newRefreshCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored refresh token now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.session(cmd.Context(), true)
			if err != nil {
				return err
			}
			if _, err := s.Refresh(cmd.Context()); err != nil {
				return sessionError(err)
			}
			return printTokens(cmd.OutOrStdout(), s, opts.jsonOutput)
		},
	}
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and delete the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.session(cmd.Context(), true)
			if err != nil {
				return err
			}
			if err := s.Logout(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server-side revocation failed: %v\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newRevokeAllCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-all",
		Short: "Sign out every device of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.session(cmd.Context(), true)
			if err != nil {
				return err
			}
			n, err := s.RevokeAll(cmd.Context())
			if err != nil {
				return sessionError(err)
			}
			// The stored refresh token was revoked with the rest.
			_ = s.Logout(cmd.Context())

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, authsdk.RevokeResponse{Revoked: n})
			}
			fmt.Fprintf(out, "Revoked %d refresh token(s)\n", n)
			return nil
		},
	}
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, authsdk.ErrTerminalAuth):
		return fmt.Errorf("session expired, log in again: %w", err)
	case errors.Is(err, authsdk.ErrTransientNetwork):
		return fmt.Errorf("service unreachable, session kept: %w", err)
	default:
		return err
	}
}

func printTokens(out io.Writer, s *authsdk.Session, asJSON bool) error {
	t, ok := s.Tokens()
	if !ok {
		return authsdk.ErrNoSession
	}
	if asJSON {
		return writeJSON(out, map[string]time.Time{
			"access_expires_at":  t.AccessExpiresAt,
			"refresh_expires_at": t.RefreshExpiresAt,
		})
	}
	fmt.Fprintf(out, "Signed in. Access token valid until %s, session until %s.\n",
		t.AccessExpiresAt.Local().Format(time.RFC3339), t.RefreshExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
