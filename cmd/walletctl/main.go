package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/walletctl/internal/transfer"
	"github.com/MarkoPoloResearchLab/walletctl/internal/walletctl"
	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagAPIBaseURL      = "api-base-url"
	flagRequestTimeout  = "request-timeout"
	flagRefreshInterval = "refresh-interval"
	flagSessionDB       = "session-db"
	flagVerbose         = "verbose"
	flagUsername        = "username"
	flagPassword        = "password"
	flagEmail           = "email"
	flagReceiver        = "to"
	flagAmount          = "amount"
	flagSort            = "sort"
	envPrefix           = "WALLETCTL"
)

type runtime struct {
	cfg       walletctl.Config
	logger    *zap.Logger
	dashboard *walletctl.Dashboard
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "walletctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	state := &runtime{}
	cmd := &cobra.Command{
		Use:           "walletctl",
		Short:         "Command line client for the wallet ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return state.close()
		},
	}

	cmd.PersistentFlags().String(flagAPIBaseURL, "", "wallet server base URL (default http://localhost:5000)")
	cmd.PersistentFlags().Duration(flagRequestTimeout, 0, "per-request timeout (default 5s)")
	cmd.PersistentFlags().Duration(flagRefreshInterval, 0, "watch refresh interval (default 10s)")
	cmd.PersistentFlags().String(flagSessionDB, "", "session database URL, sqlite:// or postgres:// (default ~/.walletctl/session.db)")
	cmd.PersistentFlags().Bool(flagVerbose, false, "enable development logging")

	cmd.AddCommand(
		newLoginCommand(state),
		newRegisterCommand(state),
		newLogoutCommand(state),
		newBalanceCommand(state),
		newHistoryCommand(state),
		newUsersCommand(state),
		newTransferCommand(state),
		newWatchCommand(state),
	)
	return cmd
}

func (state *runtime) open(cmd *cobra.Command) error {
	if err := loadConfig(cmd, &state.cfg); err != nil {
		return err
	}
	logger, err := walletctl.NewLogger(state.cfg.Verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	state.logger = logger
	dashboard, err := walletctl.NewDashboard(cmd.Context(), state.cfg, logger)
	if err != nil {
		return err
	}
	state.dashboard = dashboard
	return nil
}

func (state *runtime) close() error {
	var err error
	if state.dashboard != nil {
		err = state.dashboard.Close()
	}
	if state.logger != nil {
		_ = state.logger.Sync()
	}
	return err
}

// restore resumes the saved session; commands other than login and register need one.
func (state *runtime) restore(ctx context.Context) error {
	if err := state.dashboard.Restore(ctx); err != nil {
		return errors.New("not logged in; run walletctl login")
	}
	return nil
}

func newLoginCommand(state *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString(flagUsername)
			password, _ := cmd.Flags().GetString(flagPassword)
			current, err := state.dashboard.Login(cmd.Context(), username, password)
			if err != nil {
				return errors.New(ledger.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", current.DisplayName)
			return nil
		},
	}
	cmd.Flags().String(flagUsername, "", "username")
	cmd.Flags().String(flagPassword, "", "password")
	return cmd
}

func newRegisterCommand(state *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString(flagUsername)
			email, _ := cmd.Flags().GetString(flagEmail)
			password, _ := cmd.Flags().GetString(flagPassword)
			if err := state.dashboard.Register(cmd.Context(), username, email, password); err != nil {
				return errors.New(ledger.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registration successful! Please log in.")
			return nil
		},
	}
	cmd.Flags().String(flagUsername, "", "username")
	cmd.Flags().String(flagEmail, "", "email address")
	cmd.Flags().String(flagPassword, "", "password")
	return cmd
}

func newLogoutCommand(state *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = state.dashboard.Restore(cmd.Context())
			state.dashboard.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newBalanceCommand(state *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.refresh(cmd.Context()); err != nil {
				return err
			}
			return walletctl.RenderBalance(cmd.OutOrStdout(), state.dashboard.Model())
		},
	}
}

func newHistoryCommand(state *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the transaction history",
		Long:  "Show the transaction history. Each --sort value acts like a column click: repeating a key flips its direction, a new key sorts descending.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rawKeys, _ := cmd.Flags().GetStringSlice(flagSort)
			keys := make([]ledger.SortKey, 0, len(rawKeys))
			for _, raw := range rawKeys {
				key, err := ledger.ParseSortKey(raw)
				if err != nil {
					return err
				}
				keys = append(keys, key)
			}
			if err := state.refresh(cmd.Context()); err != nil {
				return err
			}
			state.dashboard.SortBy(keys...)
			if err := walletctl.RenderBalance(cmd.OutOrStdout(), state.dashboard.Model()); err != nil {
				return err
			}
			return walletctl.RenderHistory(cmd.OutOrStdout(), state.dashboard.Model().OrderedView())
		},
	}
	cmd.Flags().StringSlice(flagSort, nil, "sort key clicks: timestamp, type, counterparty, amount, status")
	return cmd
}

func newUsersCommand(state *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users that can receive transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.restore(cmd.Context()); err != nil {
				return err
			}
			users, err := state.dashboard.Users(cmd.Context())
			if err != nil {
				return failure(err)
			}
			return walletctl.RenderUsers(cmd.OutOrStdout(), users)
		},
	}
}

func newTransferCommand(state *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Send money to another user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.restore(cmd.Context()); err != nil {
				return err
			}
			receiver, _ := cmd.Flags().GetString(flagReceiver)
			amount, _ := cmd.Flags().GetString(flagAmount)
			outcome := state.dashboard.Transfer(cmd.Context(), ledger.TransferDraft{ReceiverUsername: receiver, Amount: amount})
			switch outcome.Status {
			case transfer.StatusSucceeded:
				fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
				if outcome.RefreshErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "history not refreshed: %s\n", ledger.UserMessage(outcome.RefreshErr))
					return nil
				}
				return walletctl.RenderHistory(cmd.OutOrStdout(), state.dashboard.Model().OrderedView())
			case transfer.StatusLoggedOut:
				return errors.New("session expired; run walletctl login")
			default:
				return errors.New(outcome.Message)
			}
		},
	}
	cmd.Flags().String(flagReceiver, "", "receiver username")
	cmd.Flags().String(flagAmount, "", "amount to send")
	return cmd
}

func newWatchCommand(state *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep balance and history on screen, refreshing periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.restore(cmd.Context()); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err := state.dashboard.Watch(ctx, cmd.OutOrStdout())
			if errors.Is(err, walletctl.ErrLoggedOut) {
				return errors.New("session expired; run walletctl login")
			}
			return err
		},
	}
}

func (state *runtime) refresh(ctx context.Context) error {
	if err := state.restore(ctx); err != nil {
		return err
	}
	if err := state.dashboard.Refresh(ctx); err != nil {
		return failure(err)
	}
	return nil
}

func failure(err error) error {
	if ledger.KindOf(err) == ledger.FailureUnauthorized {
		return errors.New("session expired; run walletctl login")
	}
	return errors.New(ledger.UserMessage(err))
}

func loadConfig(cmd *cobra.Command, cfg *walletctl.Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagAPIBaseURL, flagRequestTimeout, flagRefreshInterval, flagSessionDB, flagVerbose} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.APIBaseURL = strings.TrimSpace(v.GetString(flagAPIBaseURL))
	cfg.RequestTimeout = v.GetDuration(flagRequestTimeout)
	cfg.RefreshInterval = v.GetDuration(flagRefreshInterval)
	cfg.SessionDatabaseURL = strings.TrimSpace(v.GetString(flagSessionDB))
	cfg.Verbose = v.GetBool(flagVerbose)

	return cfg.Validate()
}
