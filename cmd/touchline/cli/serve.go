package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/touchline/internal/entity"
	"github.com/faucetdb/touchline/internal/server"
)

const banner = `
 _____ ___  _   _  ___ _  _ _    ___ _  _ ___
|_   _/ _ \| | | |/ __| || | |  |_ _| \| | __|
  | || (_) | |_| | (__| __ | |__ | || .' | _|
  |_| \___/ \___/ \___|_||_|____|___|_|\_|___|
`

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		dev     bool
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Touchline API server",
		Long: `Start the HTTP server that exposes the football entities, account routes
and login. In --dev mode a missing signing key is replaced by a random one that
lasts until the process exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, dev, migrate)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development mode (ephemeral signing key allowed)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Create missing tables and sequences before serving")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(cmd *cobra.Command, dev, migrate bool) error {
	a, err := openApp(dev)
	if err != nil {
		return err
	}
	if dev && viper.GetString("auth.signing_key") == "" {
		a.logger.Warn("using an ephemeral signing key; tokens will not survive a restart")
	}

	if migrate {
		if err := entity.Migrate(context.Background(), a.provider, a.catalog, a.logger); err != nil {
			a.Close()
			return fmt.Errorf("migrate: %w", err)
		}
	}

	srvCfg := server.FromConfig(a.cfg)
	srv := server.New(srvCfg, server.Services{
		Entities: a.entityService(),
		Auth:     a.authService(),
		Users:    a.userService(),
	}, a, a.logger)

	out := cmd.OutOrStdout()
	fmt.Fprint(out, banner)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "→ Touchline %s\n", versionString())
	fmt.Fprintf(out, "→ Listening on http://%s\n", a.cfg.Server.Addr())
	fmt.Fprintf(out, "→ Health:     http://%s/healthz\n", a.cfg.Server.Addr())
	fmt.Fprintf(out, "→ Database:   %s\n", a.cfg.Database.Driver)
	fmt.Fprintf(out, "→ Entities:   %d\n", len(a.catalog.Public()))
	fmt.Fprintln(out)

	return srv.ListenAndServe()
}
