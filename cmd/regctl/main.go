// Command regctl is a terminal client for the registry. It talks to the
// store endpoint directly and keeps its session and event selection in a
// local state file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"athletics-registry/internal/config"
	"athletics-registry/internal/localstore"
	"athletics-registry/internal/logger"
	"athletics-registry/internal/repository"
	"athletics-registry/internal/session"
	"athletics-registry/internal/store"
)

type app struct {
	log          *zap.Logger
	auth         *session.Authenticator
	sess         *session.Store
	events       *repository.EventRepository
	participants *repository.ParticipantRepository
}

// ctx carries the signed-in identity for the policy checks.
func (a *app) ctx(cmd *cobra.Command) context.Context {
	return a.sess.Context(cmd.Context())
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "regctl",
		Short:         "Athletics meet registration client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		registerCmd(a),
		eventsCmd(a),
		participantsCmd(a),
		heatsCmd(a),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) setup() error {
	cfg, err := config.ClientFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	zl := zap.NewNop()
	if cfg.Debug {
		if zl, err = logger.New(true); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
	}
	a.log = zl

	slots, err := localstore.OpenFile(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("state file: %w", err)
	}
	st := store.NewRemote(cfg.StoreEndpointURL, logger.Component(zl, "store"),
		store.WithSecret(cfg.StoreSecret),
		store.WithTimeout(cfg.StoreTimeout),
	)
	a.auth = session.NewAuthenticator(st, logger.Component(zl, "auth"))
	a.sess = session.New(a.auth, slots, []byte(cfg.SessionSecret), cfg.SessionTTL, logger.Component(zl, "session"))
	a.events = repository.NewEventRepository(st, slots, logger.Component(zl, "events"))
	a.participants = repository.NewParticipantRepository(st, a.events, logger.Component(zl, "participants"))
	return nil
}

func loginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.sess.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", id.Username, id.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.sess.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and the selected event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			id, ok := a.sess.Identity()
			if !ok {
				fmt.Fprintln(out, "not signed in")
			} else {
				fmt.Fprintf(out, "%s (%s)\n", id.Username, id.Role)
			}
			if ev, ok := a.events.Selected(); ok {
				fmt.Fprintf(out, "event: %d %s\n", ev.ID, ev.Name)
			}
			return nil
		},
	}
}

func registerCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.auth.Register(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
