package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/touchline/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage Touchline configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default touchline.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")

	return cmd
}

const defaultConfig = `# Touchline configuration
# Every key can be overridden with a TOUCHLINE_ environment variable,
# e.g. TOUCHLINE_AUTH_SIGNING_KEY or TOUCHLINE_DATABASE_DSN.

database:
  driver: postgres   # postgres, mysql, mssql, oracle or sqlite
  dsn: ""            # e.g. oracle://fm:secret@db:1521/XEPDB1
  max_open_conns: 25
  max_idle_conns: 5

auth:
  signing_key: ""    # at least 32 bytes; set via TOUCHLINE_AUTH_SIGNING_KEY
  issuer: touchline
  audience: touchline-api
  token_ttl: 30m
  admin_role: admin

server:
  host: 0.0.0.0
  port: 8080
  cors_origins:
    - "*"
  max_body_size: 10485760
  shutdown_timeout: 30s
  login_rate_limit: 10   # login attempts per minute per client IP

# Optional entity catalog replacing the built-in football entities
catalog:
  file: ""

# Hosts the server may send image DELETE requests to
images:
  delete_hosts: []
  timeout: 10s

log:
  level: info    # debug, info, warn, error
  format: text   # text or json

mcp:
  read_only: false
`

func runConfigInit(cmd *cobra.Command, force bool) error {
	path := "touchline.yaml"

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Set database.dsn and auth.signing_key, then run 'touchline migrate' and 'touchline serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	return cmd
}

func runConfigShow(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(out, "# Config file: %s\n", f)
	} else {
		fmt.Fprintln(out, "# Config file: (none found, using defaults and environment)")
	}

	cfg, err := config.Load(viper.GetViper(), true)
	if err != nil {
		fmt.Fprintf(out, "# Invalid: %v\n", err)
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
	}

	b, err := cfg.YAML()
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}
