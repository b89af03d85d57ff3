// Package main is the CLI entry point for startupmgr.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/winstack/startupmgr/internal/config"
	"github.com/winstack/startupmgr/internal/domain"
	"github.com/winstack/startupmgr/internal/infra"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "startupmgr",
	Short: "Audit and manage Windows autostart entries",
	Long: `startupmgr enumerates everything that launches at boot or logon -
registry Run/RunOnce keys, Startup folders, Scheduled Tasks and
Services - enriches each entry with live state, and lets you
enable, disable, start, stop or delete them.`,
	Version: Version,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Collect and print all autostart entries",
	Long: `Runs a full collection pass and prints the unified entry list.
When running elevated after 'save-handoff', entries only visible
to administrators are marked in the ADMIN column.`,
	RunE: runList,
}

var saveHandoffCmd = &cobra.Command{
	Use:   "save-handoff",
	Short: "Snapshot the task paths visible without elevation",
	Long: `Writes the Task Scheduler paths visible to the current user to a
temp file. Run this immediately before relaunching the tool as
administrator; the elevated pass consumes the file to work out
which tasks are admin-only.`,
	RunE: runSaveHandoff,
}

var enableCmd = &cobra.Command{
	Use:   "enable NAME",
	Short: "Enable a startup entry",
	Args:  cobra.ExactArgs(1),
	RunE:  actionCmd(func(d domain.ActionDispatcher, e domain.StartupEntry) error { return d.Enable(e) }),
}

var disableCmd = &cobra.Command{
	Use:   "disable NAME",
	Short: "Disable a startup entry",
	Args:  cobra.ExactArgs(1),
	RunE:  actionCmd(func(d domain.ActionDispatcher, e domain.StartupEntry) error { return d.Disable(e) }),
}

var startCmd = &cobra.Command{
	Use:   "start NAME",
	Short: "Launch a startup entry now",
	Args:  cobra.ExactArgs(1),
	RunE:  actionCmd(func(d domain.ActionDispatcher, e domain.StartupEntry) error { return d.Start(e) }),
}

var stopCmd = &cobra.Command{
	Use:   "stop NAME",
	Short: "Stop a running service entry",
	Args:  cobra.ExactArgs(1),
	RunE:  actionCmd(func(d domain.ActionDispatcher, e domain.StartupEntry) error { return d.Stop(e) }),
}

var deleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Remove a startup entry from its subsystem",
	Args:  cobra.ExactArgs(1),
	RunE:  actionCmd(func(d domain.ActionDispatcher, e domain.StartupEntry) error { return d.Delete(e) }),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	configPath    string
	jsonOutput    bool
	verboseList   bool
	hideMicrosoft bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	listCmd.Flags().BoolVarP(&verboseList, "verbose", "v", false, "Include the description column")
	listCmd.Flags().BoolVar(&hideMicrosoft, "hide-microsoft", false, "Hide built-in Windows services")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(saveHandoffCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	collector, err := newCollector(cfg, logger)
	if err != nil {
		return err
	}

	// Collection blocks on registry and COM enumeration; run it off the
	// command goroutine and wait on the one-shot channel.
	result := <-collector.CollectAsync(cmd.Context())
	cfg.ApplyFriendlyNames(result.Entries)

	entries := result.Entries
	if hideMicrosoft {
		entries = visibleEntries(entries)
	}

	if result.IsAdmin {
		fmt.Println("Running elevated.")
	}
	renderEntries(os.Stdout, entries, verboseList)
	return nil
}

// visibleEntries drops built-in Windows services from the listing.
func visibleEntries(entries []domain.StartupEntry) []domain.StartupEntry {
	kept := make([]domain.StartupEntry, 0, len(entries))
	for _, e := range entries {
		if infra.IsMicrosoftService(e) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func renderEntries(out io.Writer, entries []domain.StartupEntry, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := "NAME\tTYPE\tSTATUS\tSTATE\tLAST RAN\tRUNS AS\tPRODUCT\tADMIN"
	if verbose {
		header += "\tDESCRIPTION"
	}
	fmt.Fprintln(w, header)
	for _, e := range entries {
		lastRan := "-"
		if !e.LastRan.IsZero() {
			lastRan = e.LastRan.Format("2006-01-02 15:04")
		}
		admin := ""
		if e.RequiresAdmin {
			admin = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s",
			e.Display(), e.Source.Kind(), e.Enabled, e.RunState,
			lastRan, e.RunsAs, e.ProductName, admin)
		if verbose {
			fmt.Fprintf(w, "\t%s", e.Description)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d entries\n", len(entries))
}

func runSaveHandoff(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	collector, err := newCollector(cfg, logger)
	if err != nil {
		return err
	}

	result := <-collector.CollectAsync(cmd.Context())
	if err := collector.SaveHandoff(result.Entries); err != nil {
		return err
	}
	fmt.Println("Saved non-admin task paths. Relaunch as administrator and run 'list'.")
	return nil
}

// actionCmd builds a RunE that resolves NAME to an entry and applies an
// action to it. Every action is followed by the user re-running list,
// never by patching the printed state.
func actionCmd(action func(domain.ActionDispatcher, domain.StartupEntry) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		collector, err := newCollector(cfg, logger)
		if err != nil {
			return err
		}
		dispatcher, err := newDispatcher(logger)
		if err != nil {
			return err
		}

		result := <-collector.CollectAsync(cmd.Context())
		cfg.ApplyFriendlyNames(result.Entries)

		entry, err := findEntry(result.Entries, args[0])
		if err != nil {
			return err
		}
		if err := action(dispatcher, entry); err != nil {
			return err
		}
		fmt.Printf("Done: %s (%s)\n", entry.Display(), entry.Source.Kind())
		return nil
	}
}

// findEntry resolves NAME against the discovered name and any friendly
// override. The returned entry carries the discovered Name untouched:
// registry and side-table actions key on it.
func findEntry(entries []domain.StartupEntry, name string) (domain.StartupEntry, error) {
	var matches []domain.StartupEntry
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) ||
			(e.DisplayName != "" && strings.EqualFold(e.DisplayName, name)) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return domain.StartupEntry{}, fmt.Errorf("no entry named %q", name)
	case 1:
		return matches[0], nil
	}
	locations := make([]string, len(matches))
	for i, m := range matches {
		locations[i] = m.Source.Location()
	}
	return domain.StartupEntry{}, fmt.Errorf("name %q is ambiguous: %s",
		name, strings.Join(locations, "; "))
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		info := map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		}
		data, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(data))
		return
	}
	fmt.Printf("startupmgr %s (commit %s, built %s)\n", Version, Commit, BuildTime)
}
