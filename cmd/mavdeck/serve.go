package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/mavdeck/internal/appconfig"
	"pkt.systems/mavdeck/internal/logx"
	"pkt.systems/mavdeck/sshserver"
	"pkt.systems/mavdeck/tui"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over SSH",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logx.Ctx(cmd.Context())
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(addr) != "" {
				cfg.SSH.Addr = addr
			}
			if err := validateSSHConfig(cfg); err != nil {
				return err
			}
			rt, err := newRuntime(cfg, logger)
			if err != nil {
				return err
			}
			server := &sshserver.Server{
				Addr:               cfg.SSH.Addr,
				HostKeyPath:        cfg.SSH.HostKeyPath,
				AuthorizedKeysPath: cfg.SSH.AuthorizedKeys,
				Dashboard: func(context.Context) (tui.Options, error) {
					// Remote dashboards start on the picker rather than the
					// server's working directory.
					return rt.dashboard(nil), nil
				},
			}
			logger.Info("serve starting", "addr", cfg.SSH.Addr, "state_dir", cfg.StateDir)
			return server.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ssh.addr)")
	return cmd
}

func validateSSHConfig(cfg appconfig.Config) error {
	if strings.TrimSpace(cfg.SSH.Addr) == "" {
		return errors.New("ssh.addr is required")
	}
	if strings.TrimSpace(cfg.SSH.HostKeyPath) == "" {
		return errors.New("ssh.host_key_path is required")
	}
	if strings.TrimSpace(cfg.SSH.AuthorizedKeys) == "" {
		return errors.New("ssh.authorized_keys is required")
	}
	return nil
}
