package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/faucetdb/touchline/internal/fieldmap"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create accounts directly in the database, for example the first administrator.",
	}

	cmd.AddCommand(newUserCreateCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		name          string
		role          string
		phone         string
		passwordStdin bool
		jsonOutput    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Example: `  touchline user create --name coach --role admin        # prompts for password
  echo "$PW" | touchline user create --name scout --password-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}
			return runUserCreate(cmd, name, role, phone, password, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "User name (required)")
	cmd.Flags().StringVar(&role, "role", "user", "Role stored in user_right")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from standard input")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the created account as JSON")
	cmd.MarkFlagRequired("name")

	return cmd
}

// readPassword reads a secret from stdin when asked to, and otherwise
// prompts twice on the terminal.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read password: %w", err)
		}
		pw := strings.TrimRight(line, "\r\n")
		if pw == "" {
			return "", fmt.Errorf("empty password on stdin")
		}
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; use --password-stdin")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Confirm password: ")
	confirm, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	if string(pw) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(pw) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(pw), nil
}

func runUserCreate(cmd *cobra.Command, name, role, phone, password string, jsonOutput bool) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	fields := map[string]any{
		"user_name":     name,
		"user_password": password,
		"user_right":    role,
	}
	if phone != "" {
		fields["user_phone"] = phone
	}

	u, err := a.userService().Register(context.Background(), fieldmap.PayloadFromMap(fields), true)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(u)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created user %q\n", u.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "  user_id: %d\n", u.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "  role:    %s\n", u.Right)
	return nil
}
