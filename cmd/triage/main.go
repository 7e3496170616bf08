package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/inbox-triage/triage/internal/config"
	"github.com/inbox-triage/triage/internal/inbox"
	"github.com/inbox-triage/triage/internal/logger"
	"github.com/inbox-triage/triage/internal/report"
	"github.com/inbox-triage/triage/internal/triage"
	"github.com/inbox-triage/triage/internal/web"
)

var (
	cfgFile string
	envFile string
	verbose bool
)

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the env file and the config file (defaults when it does
// not exist) and builds the logger
func loadConfig() (*config.Config, zerolog.Logger, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, zerolog.Nop(), err
	}

	cfg, err := config.LoadOrDefault(resolveConfigPath())
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}

	return cfg, logger.New(cfg.Log, os.Stderr), nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "triage",
		Short: "Triage - Summaries, calendar details and tasks from plain email text",
		Long: `Triage reads an email and extracts a one-line summary, the day, time
and place of any meeting, and the action items it asks for. It then routes
the email to calendar, tasks or summary.

Everything runs locally with fixed rules: no models, no network calls
except the IMAP connection used by 'triage monitor'.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.triage/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with TRIAGE_* environment overrides")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	// Add commands
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(initCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func analyzeCmd() *cobra.Command {
	var (
		format string
		eml    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze one email",
		Long: `Analyze an email read from a file, or from stdin when no file (or "-")
is given. Files ending in .eml, or any input with --eml, are parsed as full
messages and their text body is analyzed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			return runAnalyze(cmd, path, eml, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, yaml)")
	cmd.Flags().BoolVar(&eml, "eml", false, "Parse the input as an RFC 5322 message")

	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, eml bool, format report.Format) error {
	_, log, err := loadConfig()
	if err != nil {
		return err
	}

	in, err := readInput(path, cmd.InOrStdin(), eml)
	if err != nil {
		return err
	}

	res := triage.NewAnalyzer(logger.Component(log, "triage")).Analyze(in.Source, in.Text)
	return report.Write(cmd.OutOrStdout(), format, res)
}

func serveCmd() *cobra.Command {
	var (
		port int
		open bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local web form",
		Long: `Start a local web server with a form for pasting an email and a JSON
API at POST /api/analyze.

The server only listens on 127.0.0.1 - nothing is sent to external servers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port, open)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config, 8080)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the form in a browser")

	return cmd
}

func runServe(cmd *cobra.Command, port int, open bool) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}

	server, err := web.NewServer(cfg.Server, triage.NewAnalyzer(logger.Component(log, "triage")), log)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	return server.Start(open)
}

func monitorCmd() *cobra.Command {
	var (
		days  int
		watch bool
		apply bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Analyze recent emails in an IMAP mailbox",
		Long: `Connect to the configured IMAP mailbox, analyze every email from the last
few days and print its route and summary. Messages are read without being
marked as seen.

With --apply, each email is moved to the folder configured for its route
under inbox.route_folders (the folder is created if missing).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = -1
			}
			return runMonitor(cmd, days, watch, apply)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to look back for emails")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep watching for new emails")
	cmd.Flags().BoolVar(&apply, "apply", false, "Move each email to the folder configured for its route")

	return cmd
}

func runMonitor(cmd *cobra.Command, days int, watch, apply bool) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if days < 0 {
		days = cfg.Inbox.Days
	}

	// Validate inbox config
	if err := cfg.ValidateInbox(); err != nil {
		fmt.Println("Inbox access is not configured.")
		fmt.Println()
		fmt.Println("Run 'triage init', or add the following to your config.yaml:")
		fmt.Println()
		fmt.Println("inbox:")
		fmt.Println("  provider: gmail")
		fmt.Println("  email: your-email@gmail.com")
		fmt.Println("  password: your-app-password  # Use an App Password, not your main password")
		fmt.Println()
		fmt.Printf("The email and password can also come from %s and %s.\n", config.EnvIMAPEmail, config.EnvIMAPPassword)
		return err
	}
	if apply && len(cfg.Inbox.RouteFolders) == 0 {
		return fmt.Errorf("--apply needs inbox.route_folders in the config")
	}

	analyzer := triage.NewAnalyzer(logger.Component(log, "triage"))
	monitor := inbox.NewMonitor(cfg.Inbox, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down")
		cancel()
	}()

	if err := monitor.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to inbox: %w", err)
	}
	defer monitor.Disconnect()

	out := cmd.OutOrStdout()
	ensured := make(map[string]bool)
	process := func(email inbox.Email) triage.Route {
		res := analyzer.Analyze(email.Source(), email.Text())
		printAnalyzedEmail(out, email, res)

		if !apply {
			return res.Route
		}
		folder := cfg.Inbox.FolderFor(res.Route)
		if folder == "" || email.UID == 0 {
			return res.Route
		}
		if !ensured[folder] {
			if err := monitor.EnsureFolderExists(folder); err != nil {
				log.Error().Err(err).Str("folder", folder).Msg("cannot create folder")
				return res.Route
			}
			ensured[folder] = true
		}
		if err := monitor.MoveToFolder(email.UID, folder); err != nil {
			log.Error().Err(err).Uint32("uid", email.UID).Str("folder", folder).Msg("failed to move email")
			return res.Route
		}
		fmt.Fprintf(out, "  moved to %s\n", folder)
		return res.Route
	}

	emails, err := monitor.FetchRecentEmails(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to fetch emails: %w", err)
	}

	fmt.Fprintf(out, "Found %d emails from the last %d days\n\n", len(emails), days)

	counts := make(map[triage.Route]int)
	for _, email := range emails {
		counts[process(email)]++
	}

	if len(emails) > 0 {
		var parts []string
		for _, route := range triage.Routes() {
			parts = append(parts, fmt.Sprintf("%s: %d", route, counts[route]))
		}
		fmt.Fprintf(out, "Routes - %s\n", strings.Join(parts, ", "))
	}

	if !watch {
		return nil
	}

	fmt.Fprintln(out)
	err = monitor.WatchForNewEmails(ctx, func(email inbox.Email) {
		process(email)
	})
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long:  "Create a new configuration file with logging, web form and IMAP settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Triage Configuration Setup")
	fmt.Println("==========================")
	fmt.Println()

	cfg := config.Default()

	fmt.Println("Web form")
	fmt.Println()
	if port := prompt(reader, fmt.Sprintf("Port [%d]: ", cfg.Server.Port)); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q", port)
		}
		cfg.Server.Port = n
	}

	fmt.Println()
	fmt.Println("Inbox (optional, used by 'triage monitor')")
	fmt.Println()

	provider := strings.ToLower(prompt(reader, "Provider (gmail/outlook/imap, empty to skip): "))
	if provider != "" {
		cfg.Inbox.Provider = provider
		cfg.Inbox.Email = prompt(reader, "  Email address: ")
		fmt.Printf("  Leave the password empty to read it from %s instead.\n", config.EnvIMAPPassword)
		cfg.Inbox.Password = prompt(reader, "  App password: ")

		if provider == "imap" {
			cfg.Inbox.Server = prompt(reader, "  IMAP server: ")
			cfg.Inbox.Port = 993
			if port := prompt(reader, "  IMAP port [993]: "); port != "" {
				n, err := strconv.Atoi(port)
				if err != nil {
					return fmt.Errorf("invalid IMAP port %q", port)
				}
				cfg.Inbox.Port = n
			}
		}

		fmt.Println()
		fmt.Println("  Folders for 'triage monitor --apply' (empty leaves the email in place)")
		cfg.Inbox.RouteFolders = make(map[string]string)
		for _, route := range triage.Routes() {
			if folder := prompt(reader, fmt.Sprintf("  Folder for %s emails: ", route)); folder != "" {
				cfg.Inbox.RouteFolders[string(route)] = folder
			}
		}
	}

	configPath := resolveConfigPath()
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run 'triage analyze message.txt' to analyze one email")
	fmt.Println("  2. Run 'triage serve --open' to use the web form")
	fmt.Println("  3. Run 'triage monitor' to analyze your inbox")

	return nil
}

func prompt(reader *bufio.Reader, message string) string {
	fmt.Print(message)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}
