package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sheetdrop/sheetdrop/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the super administrator account",
		Long:  "Provision the super administrator and inspect accounts from the command line.",
	}

	cmd.AddCommand(newAdminInitCmd())
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// ---------- admin init ----------

func newAdminInitCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Provision the super administrator",
		Example: `  sheetdrop admin init --email admin@example.com --password secret
  sheetdrop admin init --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminInit(email, password, name)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Super admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Super admin password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Super admin display name")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminInit(email, password, name string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	tokens := service.NewTokenIssuer("unused", service.DefaultTokenTTL)
	authSvc := service.NewAuthService(st, tokens, logger, service.AuthConfig{
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		BcryptCost:        cfg.Auth.BcryptCost,
	})

	acct, err := authSvc.ProvisionSuperAdmin(context.Background(), name, email, password)
	if err != nil {
		return err
	}

	fmt.Printf("Created super administrator %q (%s)\n", acct.Email, acct.ID)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	accounts, err := st.ListAccounts(context.Background())
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(accounts)
	}

	if len(accounts) == 0 {
		fmt.Println("No accounts yet. Use 'sheetdrop admin init' to create the super administrator.")
		return nil
	}

	fmt.Printf("%-30s %-24s %-12s %-9s %-7s\n", "EMAIL", "NAME", "ROLE", "APPROVED", "ACTIVE")
	fmt.Printf("%-30s %-24s %-12s %-9s %-7s\n", "-----", "----", "----", "--------", "------")
	for _, a := range accounts {
		fmt.Printf("%-30s %-24s %-12s %-9s %-7s\n", a.Email, a.Name, a.Role, yesNo(a.IsApproved), yesNo(a.IsActive))
	}

	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
