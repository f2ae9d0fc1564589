package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/pgrepl-tui/app"
	"github.com/deevus/pgrepl-tui/config"
	"github.com/deevus/pgrepl-tui/internal"
	"github.com/deevus/pgrepl-tui/internal/logger"
	"github.com/deevus/pgrepl-tui/replication"
	"github.com/jackc/pgx/v5"
)

func main() {
	serverFlag := flag.String("server", "", "server profile name from config (default: all)")
	configFlag := flag.String("config", config.DefaultPath(), "path to config file")
	levelFlag := flag.String("log-level", "", "override the configured log level")
	onceFlag := flag.Bool("once", false, "fetch both datasets, print them and exit")
	flag.Parse()

	cfg, err := config.LoadFrom(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Log.Level
	if *levelFlag != "" {
		level = *levelFlag
	}
	var lg *logger.Logger
	if *onceFlag && cfg.Log.File == "" {
		lg = logger.NewConsole(level)
	} else {
		var closer io.Closer
		lg, closer, err = logger.Open(cfg.Log.File, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closer.Close()
	}

	names := cfg.ServerNames()
	if *serverFlag != "" {
		if _, ok := cfg.Servers[*serverFlag]; !ok {
			fmt.Fprintf(os.Stderr, "Error: server %q not found in config\nAvailable: %v\n", *serverFlag, names)
			os.Exit(1)
		}
		names = []string{*serverFlag}
	}

	ctx := context.Background()

	servers := make([]app.Server, 0, len(names))
	for _, name := range names {
		serverCfg := cfg.Servers[name]
		svc, err := newServices(ctx, name, serverCfg, lg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		servers = append(servers, app.Server{
			Name:     name,
			Node:     replication.NodeContext{ServerID: serverCfg.ServerID, ServerName: name},
			Services: svc,
			Timeout:  serverCfg.Timeout.Duration,
		})
	}

	if *onceFlag {
		err := printOnce(ctx, os.Stdout, servers)
		for _, srv := range servers {
			_ = srv.Services.Close()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	root := app.New(app.Params{Servers: servers, Logger: lg})
	if err := runTUI(root, lg, names); err != nil {
		_ = root.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	_ = root.Close()
}

func runTUI(root *app.App, lg *logger.Logger, names []string) error {
	vxApp, err := vxfw.NewApp(vaxis.Options{})
	if err != nil {
		return err
	}
	root.SetPostEvent(vxApp.PostEvent)

	lg.Info().Strs("servers", names).Msg("starting")
	return vxApp.Run(root)
}

// newServices builds the data source for one server profile: a direct
// PostgreSQL pool (optionally through SSH) when a DSN is set, otherwise the
// dashboard HTTP API.
func newServices(ctx context.Context, name string, sc config.ServerConfig, lg *logger.Logger) (*internal.Services, error) {
	if !sc.Direct() {
		src, err := replication.NewHTTPSource(replication.HTTPSourceParams{
			BaseURL:            sc.URL,
			APIKey:             sc.APIKey,
			SessionCookie:      sc.SessionCookie,
			InsecureSkipVerify: sc.InsecureSkipVerify,
			Timeout:            sc.Timeout.Duration,
			Logger:             lg.WithServer(name, sc.ServerID),
		})
		if err != nil {
			return nil, fmt.Errorf("server %s: %w", name, err)
		}
		return internal.NewServices(src), nil
	}

	var dialer *replication.SSHDialer
	if sc.SSH != nil {
		d, err := newSSHDialer(name, sc)
		if err != nil {
			return nil, err
		}
		dialer = d
	}

	src, err := replication.NewPGSource(ctx, replication.PGSourceParams{
		DSN:     sc.DSN,
		Timeout: sc.Timeout.Duration,
		Dialer:  dialer,
		Logger:  lg.WithServer(name, sc.ServerID),
	})
	if err != nil {
		if dialer != nil {
			_ = dialer.Close()
		}
		return nil, fmt.Errorf("server %s: %w", name, err)
	}
	if dialer != nil {
		return internal.NewServices(src, dialer, src), nil
	}
	return internal.NewServices(src, src), nil
}

func newSSHDialer(name string, sc config.ServerConfig) (*replication.SSHDialer, error) {
	sshHost := sc.SSH.Host
	if sshHost == "" {
		connCfg, err := pgx.ParseConfig(sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("server %s: parsing dsn: %w", name, err)
		}
		sshHost = connCfg.Host
	}

	if sc.SSH.HostKeyFingerprint == "" {
		fingerprint, err := replication.ScanHostKey(sshHost, sc.SSH.Port)
		if err != nil {
			return nil, fmt.Errorf("host_key_fingerprint is required for SSH.\n"+
				"Could not auto-detect: %v\n"+
				"Get it with: ssh-keyscan -p %d %s 2>/dev/null | ssh-keygen -lf -",
				err, sc.SSH.Port, sshHost)
		}
		return nil, fmt.Errorf("host_key_fingerprint is required for SSH.\n"+
			"Detected fingerprint for %s:\n\n"+
			"  host_key_fingerprint = %q\n\n"+
			"Add this to [servers.%s.ssh] in your config.",
			sshHost, fingerprint, name)
	}

	privateKey, err := os.ReadFile(sc.SSH.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH private key %s: %w", sc.SSH.PrivateKeyPath, err)
	}

	dialer, err := replication.NewSSHDialer(replication.SSHConfig{
		Host:               sshHost,
		Port:               sc.SSH.Port,
		User:               sc.SSH.Username,
		PrivateKey:         privateKey,
		HostKeyFingerprint: sc.SSH.HostKeyFingerprint,
		Timeout:            sc.Timeout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", name, err)
	}
	return dialer, nil
}
