package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/al-bashkir/wwsvc-go/internal/config"
	"github.com/al-bashkir/wwsvc-go/internal/logsanitize"
	"github.com/al-bashkir/wwsvc-go/internal/mockserver"
	"github.com/al-bashkir/wwsvc-go/wwsvc"
)

// Version information (set via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Global flags
var (
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
)

// Request flags
var (
	params     []string
	revision   uint32
	method     string
	pageSize   uint32
	maxPages   int
	container  string
	listName   string
	keepPass   bool
	listenAddr string
	mockPages  int
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitConfig  = 3
)

var rootCmd = &cobra.Command{
	Use:   "wwsvc",
	Short: "WEBSERVICES client for SoftENGINE WEBWARE",
	Long: `Example driver for the wwsvc client library.

Connection settings come from the configuration file, from WWSVC_*
environment variables, or from a .env file:

  WWSVC_URL, WWSVC_VENDOR_HASH, WWSVC_APP_HASH, WWSVC_SECRET,
  WWSVC_REVISION, WWSVC_SERVICE_PASS, WWSVC_APP_ID`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// overrideExitCode is set by check-config so main() can call os.Exit() after
// cobra finishes. -1 means "use default".
var overrideExitCode = -1

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display version, commit hash, and build date.`,
	Run:   runVersion,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate configuration",
	Long: `Load and validate the configuration without contacting the server.

Exit codes:
  0 = Configuration is valid
  3 = Configuration error`,
	RunE: runCheckConfig,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Obtain a service pass",
	Long: `Register the application and print the issued service pass.

The pass stays valid unless --keep=false is given. Export it as
WWSVC_SERVICE_PASS and WWSVC_APP_ID to reuse it without registering again.`,
	RunE: runRegister,
}

var deregisterCmd = &cobra.Command{
	Use:   "deregister",
	Short: "Release the configured service pass",
	RunE:  runDeregister,
}

var requestCmd = &cobra.Command{
	Use:   "request <FUNCTION>",
	Short: "Execute a service function and print the JSON response",
	Example: `  wwsvc request ARTIKEL.GET -p FELDER=ART_1_25,ART_2_25 -p ART_1_25=A*
  wwsvc request LAGER.GET --method GET --revision 2`,
	Args: cobra.ExactArgs(1),
	RunE: runRequest,
}

var cursorCmd = &cobra.Command{
	Use:   "cursor <FUNCTION>",
	Short: "Page through a list with a server cursor",
	Long: `Page through a list with a server cursor and print one JSON object per
line. The list keys default to <BASE>LISTE and <BASE> for a function
<BASE>.GET and can be overridden with --container and --list.`,
	Args: cobra.ExactArgs(1),
	RunE: runCursor,
}

var dumpCmd = &cobra.Command{
	Use:   "dump <FUNCTION>",
	Short: "Print a signed request without sending it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run a local fake WEBSERVICES server",
	Long: `Run a fake WEBSERVICES server for trying out the client.

REGISTER issues the pass PASS-0001 with app id APP-0001. EXECJSON answers the
first requests with ARTIKEL pages, the last of which closes the cursor.`,
	RunE: runMockServer,
}

func init() {
	// Global flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Path to a .env file; a missing file is ignored")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error) - overrides config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format (json, text) - overrides config file")

	for _, cmd := range []*cobra.Command{requestCmd, cursorCmd, dumpCmd} {
		cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Function parameter NAME=VALUE (repeatable)")
		cmd.Flags().Uint32Var(&revision, "revision", 1, "Function revision")
		cmd.Flags().StringVar(&method, "method", http.MethodPut, "HTTP method")
	}
	cursorCmd.Flags().Uint32Var(&pageSize, "page-size", 0, "Rows per page (default from config)")
	cursorCmd.Flags().IntVar(&maxPages, "max-pages", 0, "Stop after this many pages (0 = all)")
	cursorCmd.Flags().StringVar(&container, "container", "", "Container key of the list")
	cursorCmd.Flags().StringVar(&listName, "list", "", "List key inside the container")
	registerCmd.Flags().BoolVar(&keepPass, "keep", true, "Keep the service pass after printing it")
	mockServerCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8080", "Listen address")
	mockServerCmd.Flags().IntVar(&mockPages, "pages", 3, "Number of scripted ARTIKEL pages")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(deregisterCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(cursorCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(mockServerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}

	// If a subcommand set a specific exit code, use it.
	// This is done outside RunE so deferred functions run properly.
	if overrideExitCode >= 0 {
		os.Exit(overrideExitCode)
	}
}

// loadEnvFile loads envFile into the environment. Variables that are already
// set win.
func loadEnvFile() error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// loadConfig loads the configuration and initialises logging.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := loadEnvFile(); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override log settings from flags if provided
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger := config.SetupLogging(&cfg.Log, nil)
	return cfg, logger, nil
}

// newClient loads the configuration and returns an unregistered client.
func newClient() (*config.Config, *wwsvc.Client, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	client, err := wwsvc.New(cfg.ClientOptions(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return cfg, client, nil
}

func parseParams(raw []string) (wwsvc.Parameters, error) {
	out := wwsvc.Parameters{}
	for _, p := range raw {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, want NAME=VALUE", p)
		}
		out.Set(name, value)
	}
	return out, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func output(cmd *cobra.Command) io.Writer {
	if cmd != nil {
		return cmd.OutOrStdout()
	}
	return os.Stdout
}

// runVersion displays version information
func runVersion(cmd *cobra.Command, args []string) {
	out := output(cmd)
	_, _ = fmt.Fprintf(out, "wwsvc version %s\n", version)
	_, _ = fmt.Fprintf(out, "  Commit:     %s\n", commit)
	_, _ = fmt.Fprintf(out, "  Build date: %s\n", buildDate)
	_, _ = fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
}

// runCheckConfig validates the configuration
func runCheckConfig(cmd *cobra.Command, args []string) error {
	out := output(cmd)
	_, _ = fmt.Fprintf(out, "Checking configuration: %s\n\n", configOrEnv())

	if err := loadEnvFile(); err != nil {
		return err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed:\n")
		fmt.Fprintf(os.Stderr, "   %v\n", err)
		overrideExitCode = ExitConfig
		return nil // exit code handled via overrideExitCode
	}

	r := cfg.Redact()
	_, _ = fmt.Fprintln(out, "✅ Configuration is valid")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Configuration summary:")
	_, _ = fmt.Fprintf(out, "  Server URL:       %s\n", r.Webware.URL)
	_, _ = fmt.Fprintf(out, "  Vendor hash:      %s\n", r.Webware.VendorHash)
	_, _ = fmt.Fprintf(out, "  App hash:         %s\n", r.Webware.AppHash)
	_, _ = fmt.Fprintf(out, "  Revision:         %d\n", r.Webware.Revision)
	_, _ = fmt.Fprintf(out, "  Timeout:          %d seconds\n", r.Webware.Timeout)
	_, _ = fmt.Fprintf(out, "  Result max lines: %d\n", r.Webware.ResultMaxLines)
	_, _ = fmt.Fprintf(out, "  Page size:        %d\n", r.Cursor.PageSize)
	_, _ = fmt.Fprintf(out, "  Empty page:       %s\n", r.Cursor.EmptyPage)
	_, _ = fmt.Fprintf(out, "  Rate limit:       %g/s\n", r.Limits.RequestsPerSecond)
	_, _ = fmt.Fprintf(out, "  Circuit breaker:  %v\n", r.Breaker.Enabled)
	_, _ = fmt.Fprintf(out, "  Log Level:        %s\n", r.Log.Level)
	_, _ = fmt.Fprintf(out, "  Log Format:       %s\n", r.Log.Format)

	if cfg.Webware.AllowInsecure {
		_, _ = fmt.Fprintln(out, "\n  ⚠ TLS verification is disabled")
	}
	if cfg.Credentials.ServicePass != "" {
		_, _ = fmt.Fprintln(out, "\n  Service pass:     [SET]")
	} else {
		_, _ = fmt.Fprintln(out, "\n  Service pass:     [NOT SET] (registers on demand)")
	}

	return nil
}

func configOrEnv() string {
	if configFile == "" {
		return "(environment)"
	}
	return configFile
}

// runRegister obtains a service pass and prints it
func runRegister(cmd *cobra.Command, args []string) error {
	_, client, err := newClient()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if err := client.Register(ctx); err != nil {
		return err
	}

	creds, _ := client.Credentials()
	out := output(cmd)
	_, _ = fmt.Fprintf(out, "WWSVC_SERVICE_PASS=%s\n", creds.ServicePass)
	_, _ = fmt.Fprintf(out, "WWSVC_APP_ID=%s\n", creds.AppID)

	if !keepPass {
		client.Deregister(ctx)
	}
	return nil
}

// runDeregister releases the configured service pass
func runDeregister(cmd *cobra.Command, args []string) error {
	cfg, client, err := newClient()
	if err != nil {
		return err
	}
	if cfg.Credentials.ServicePass == "" {
		return errors.New("no service pass configured (set WWSVC_SERVICE_PASS and WWSVC_APP_ID)")
	}

	ctx := commandContext(cmd)
	if err := client.Register(ctx); err != nil {
		return err
	}
	client.Deregister(ctx)

	slog.Info("service pass released", "service_pass", logsanitize.Mask(cfg.Credentials.ServicePass))
	return nil
}

// runRequest executes a single function
func runRequest(cmd *cobra.Command, args []string) error {
	p, err := parseParams(params)
	if err != nil {
		return err
	}

	_, client, err := newClient()
	if err != nil {
		return err
	}

	return client.WithRegistered(commandContext(cmd), func(ctx context.Context, c *wwsvc.Client) error {
		raw, err := c.Request(ctx, method, args[0], revision, p, nil)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(output(cmd))
		enc.SetIndent("", "  ")
		return enc.Encode(raw)
	})
}

// runCursor pages through a list
func runCursor(cmd *cobra.Command, args []string) error {
	p, err := parseParams(params)
	if err != nil {
		return err
	}

	cfg, client, err := newClient()
	if err != nil {
		return err
	}

	size := pageSize
	if size == 0 {
		size = cfg.Cursor.PageSize
	}

	opts := []wwsvc.PaginatorOption{wwsvc.WithEmptyPagePolicy(cfg.EmptyPagePolicy())}
	if container != "" || listName != "" {
		shape := wwsvc.ShapeFor(args[0])
		if container != "" {
			shape.Container = container
		}
		if listName != "" {
			shape.List = listName
		}
		opts = append(opts, wwsvc.WithListShape(shape))
	}

	return client.WithRegistered(commandContext(cmd), func(ctx context.Context, c *wwsvc.Client) error {
		pager := wwsvc.NewPaginator[json.RawMessage](c, method, args[0], revision, p, size, opts...)
		enc := json.NewEncoder(output(cmd))

		pages, total := 0, 0
		for maxPages == 0 || pages < maxPages {
			items, ok, err := pager.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			pages++
			total += len(items)
			for _, item := range items {
				if err := enc.Encode(item); err != nil {
					return err
				}
			}
		}

		if !pager.Finished() {
			c.CloseCursor()
		}
		slog.Info("pagination done", "function", args[0], "pages", pages, "items", total)
		return nil
	})
}

// runDump prints a signed request without sending it
func runDump(cmd *cobra.Command, args []string) error {
	p, err := parseParams(params)
	if err != nil {
		return err
	}

	_, client, err := newClient()
	if err != nil {
		return err
	}

	return client.WithRegistered(commandContext(cmd), func(ctx context.Context, c *wwsvc.Client) error {
		req, err := c.PrepareRequest(ctx, method, args[0], revision, p, nil)
		if err != nil {
			return err
		}
		dump, err := wwsvc.DumpRequest(req)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(output(cmd), dump)
		return err
	})
}

// runMockServer serves a fake WEBSERVICES server until interrupted
func runMockServer(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if logLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	pages := make([]mockserver.Page, 0, mockPages)
	for i := 0; i < mockPages; i++ {
		cursor := "tok" + strconv.Itoa(i+1)
		if i == mockPages-1 {
			cursor = wwsvc.CursorIDClosed
		}
		pages = append(pages, mockserver.ListPage(cursor, "ARTIKELLISTE", "ARTIKEL", i*10, 10))
	}

	srv := mockserver.New(mockserver.WithLogger(logger), mockserver.WithPages(pages...))

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(listenAddr) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
