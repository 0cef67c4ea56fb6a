package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type credentialFlags struct {
	username string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "username", "u", "", "Account name")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "Password (default: MEDINAUTS_PASSWORD)")
}

func (c *credentialFlags) resolve() error {
	c.username = strings.TrimSpace(c.username)
	if c.password == "" {
		c.password = os.Getenv("MEDINAUTS_PASSWORD")
	}
	if c.username == "" || c.password == "" {
		return errors.New("--username and --password are required")
	}
	return nil
}

func newRegisterCmd(a *app) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := creds.resolve(); err != nil {
				return err
			}
			if err := a.authClient().Register(cmd.Context(), creds.username, creds.password); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created. Sign in with: intake login -u %s\n", creds.username, creds.username)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var creds credentialFlags
	var rawToken string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the bearer token",
		Long: `Exchange a username and password for a bearer token and store it in
the token database. Use --token to store a token obtained elsewhere, for
example from tokengen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if rawToken != "" {
				if err := a.tokens.Set(ctx, rawToken); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Token stored.")
				return nil
			}
			if err := creds.resolve(); err != nil {
				return err
			}
			tok, err := a.authClient().Login(ctx, creds.username, creds.password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := a.tokens.Set(ctx, tok.AccessToken); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", creds.username)
			return nil
		},
	}
	creds.bind(cmd)
	cmd.Flags().StringVar(&rawToken, "token", "", "Store this bearer token instead of signing in")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.tokens.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
