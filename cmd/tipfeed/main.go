package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tipfeed/internal/app"
	"tipfeed/internal/config"
	"tipfeed/internal/feed"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// readConfig loads the config file named by the defaults.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
func newApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "tipfeed",
	Short:         "Post to and tip an on-chain social feed",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return app.LoadEnvFile(".env")
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if addr, _ := cmd.Flags().GetString("contract"); addr != "" {
			cfg.Chain.ContractAddress = addr
		}
		if rpc, _ := cmd.Flags().GetString("rpc"); rpc != "" {
			cfg.Chain.RPCURL = rpc
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		if cfg.Chain.ContractAddress == "" {
			fmt.Println("Set chain.contract_address before using the feed.")
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("RPC URL:       %s\n", cfg.Chain.RPCURL)
		fmt.Printf("Chain ID:      %d\n", cfg.Chain.ChainID)
		fmt.Printf("Contract:      %s\n", cfg.Chain.ContractAddress)
		fmt.Printf("Key:           %s (%s)\n", cfg.Chain.Key.Path, cfg.Chain.Key.Type)
		fmt.Printf("Content Store: %s\n", cfg.ContentStore.Type)
		fmt.Printf("Cache:         %s\n", cfg.Cache.Type)
		fmt.Printf("Journal:       %s\n", cfg.Journal.Type)
		fmt.Printf("Notify:        %s\n", cfg.Notify.Type)
		return nil
	},
}

// key command
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the signing key",
}

var keyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a signing key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		addr, err := app.GenerateKey(cfg.Chain.Key, app.PromptPassphrase)
		if err != nil {
			return err
		}

		fmt.Printf("Signing key written to %s\n", cfg.Chain.Key.Path)
		fmt.Printf("Address: %s\n", addr.Hex())
		return nil
	},
}

// feed command
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{Command: "feed"})
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := a.Feed(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading feed: %w", err)
		}

		renderIdentity(cmd.Context(), a, state.Identity)
		if len(state.Items) == 0 {
			fmt.Println("No posts yet.")
			return nil
		}
		for _, item := range state.Items {
			renderItem(item, feed.CanTip(state.Identity, item))
		}
		return nil
	},
}

func renderIdentity(ctx context.Context, a *app.App, id feed.SessionIdentity) {
	fmt.Printf("Viewer:  %s\n", id.Address.Hex())
	if balance, err := a.WalletBalance(ctx); err == nil {
		fmt.Printf("Balance: %s ETH\n", app.FormatEther(balance))
	}
	if feed.CanPublish(id) {
		fmt.Println("Posting: allowed")
	} else {
		fmt.Println("Posting: must own an NFT to post")
	}
	fmt.Println()
}

func renderItem(item feed.FeedItem, canTip bool) {
	name := item.Author.Username()
	if name == "" {
		name = shortAddress(item.Author.Address.Hex())
	}

	marker := ""
	if canTip {
		marker = fmt.Sprintf("  [tip: tipfeed tip %s]", item.ID)
	}
	fmt.Printf("#%s  %s  tips %s ETH%s\n", item.ID, name, app.FormatEther(item.TipTotal), marker)

	content := item.Content.OrElse("(content unavailable)")
	for _, line := range strings.Split(content, "\n") {
		fmt.Printf("    %s\n", line)
	}
	fmt.Println()
}

func shortAddress(hex string) string {
	if len(hex) < 12 {
		return hex
	}
	return hex[:6] + "…" + hex[len(hex)-4:]
}

// post command
var postCmd = &cobra.Command{
	Use:   "post TEXT",
	Short: "Publish a post",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{Command: "post", Sign: true})
		if err != nil {
			return err
		}
		defer a.Close()

		// Once submitted, a write is waited on even if the user interrupts.
		ctx := context.WithoutCancel(cmd.Context())
		ref, err := a.Publish(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("publishing: %w", err)
		}

		fmt.Printf("Published %s\n", ref)
		return nil
	},
}

// tip command
var tipCmd = &cobra.Command{
	Use:   "tip POST_ID",
	Short: "Tip the author of a post 0.1 ETH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		postID, ok := new(big.Int).SetString(args[0], 10)
		if !ok || postID.Sign() < 0 {
			return fmt.Errorf("invalid post id: %q", args[0])
		}

		a, err := newApp(cmd.Context(), app.Options{Command: "tip", Sign: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.WithoutCancel(cmd.Context())
		if err := a.Tip(ctx, postID); err != nil {
			if errors.Is(err, app.ErrNotEligible) {
				return fmt.Errorf("%w (you cannot tip your own posts, and tipping requires a profile NFT)", err)
			}
			return fmt.Errorf("tipping: %w", err)
		}

		fmt.Printf("Tipped post #%s %s ETH\n", postID, app.FormatEther(feed.TipAmount()))
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View write operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")
		switch feed.OperationKind(kind) {
		case "", feed.OperationPublish, feed.OperationTip:
		default:
			return fmt.Errorf("unknown operation kind: %q", kind)
		}

		a, err := newApp(cmd.Context(), app.Options{Command: "history", Offline: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit, feed.OperationKind(kind))
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Started", "Kind", "Subject", "State", "Tx", "Duration", "Error"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		for _, op := range ops {
			duration := ""
			if op.Finished() {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			table.Append([]string{
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				string(op.Kind),
				op.Subject,
				op.State.String(),
				op.TxHash,
				duration,
				op.Error,
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("contract", "", "Feed contract address")
	configInitCmd.Flags().String("rpc", "", "JSON-RPC endpoint of the chain")

	// key subcommands
	keyCmd.AddCommand(keyInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(tipCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	historyCmd.Flags().String("kind", "", "Only show operations of this kind (publish or tip)")
}
