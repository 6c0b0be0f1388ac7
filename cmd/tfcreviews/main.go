// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mdhender/tfcreviews"
	"github.com/mdhender/tfcreviews/config"
	"github.com/mdhender/tfcreviews/importer"
	"github.com/mdhender/tfcreviews/model"
	"github.com/mdhender/tfcreviews/provider"
	"github.com/mdhender/tfcreviews/reviews"
	store "github.com/mdhender/tfcreviews/stores/sqlite"
	"github.com/mdhender/tfcreviews/web/auth"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	addFlags := func(cmd *cobra.Command) error {
		cmd.PersistentFlags().String("config", config.DefaultConfigFile, "load configuration from file")
		cmd.PersistentFlags().String("db", "", "SQLite database file path (overrides config)")
		cmd.PersistentFlags().Bool("debug", false, "log debugging information")
		cmd.PersistentFlags().Bool("log-with-default-flags", false, "log with default flags")
		cmd.PersistentFlags().Bool("log-with-shortfile", true, "log with short file name")
		cmd.PersistentFlags().Bool("log-with-timestamp", false, "log with timestamp")
		cmd.PersistentFlags().Bool("quiet", false, "log less information")
		cmd.PersistentFlags().Bool("show-version", false, "show version")
		cmd.PersistentFlags().Bool("verbose", false, "log more information")
		return nil
	}
	var cmdRoot = &cobra.Command{
		Use:   "tfcreviews",
		Short: "Feedback Company review summaries",
		Long:  `Resolve store credentials, import review summaries, and serve the cached results.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logWithDefaultFlags, _ := cmd.Flags().GetBool("log-with-default-flags")
			logWithShortFileName, _ := cmd.Flags().GetBool("log-with-shortfile")
			logWithTimestamp, _ := cmd.Flags().GetBool("log-with-timestamp")
			logFlags := 0
			if logWithShortFileName {
				logFlags |= log.Lshortfile
			}
			if logWithTimestamp {
				logFlags |= log.Ltime
			}
			if logWithDefaultFlags || logFlags == 0 {
				logFlags = log.LstdFlags
			}
			log.SetFlags(logFlags)

			if showVersion, _ := cmd.Flags().GetBool("show-version"); showVersion {
				fmt.Printf("tfcreviews: version %q\n", tfcreviews.Version().Core())
			}

			return nil
		},
	}
	cmdRoot.AddCommand(cmdInitConfig())
	cmdRoot.AddCommand(cmdInitDB())
	cmdRoot.AddCommand(cmdCompactDB())
	cmdRoot.AddCommand(cmdSeed())
	cmdRoot.AddCommand(cmdStores())
	cmdRoot.AddCommand(cmdConfig())
	cmdRoot.AddCommand(cmdCredentials())
	cmdRoot.AddCommand(cmdImport())
	cmdRoot.AddCommand(cmdSummary())
	cmdRoot.AddCommand(cmdLastImport())
	cmdRoot.AddCommand(cmdHistory())
	cmdRoot.AddCommand(cmdResetTokens())
	cmdRoot.AddCommand(cmdHashPassword())
	cmdRoot.AddCommand(cmdServe())
	cmdRoot.AddCommand(cmdVersion())
	if err := addFlags(cmdRoot); err != nil {
		log.Fatal(err)
	}
	return cmdRoot
}

// loadConfig reads the config file named by --config and applies --db.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(afero.NewOsFs(), path)
	if err != nil {
		return nil, err
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.Database = dbPath
	}
	return cfg, nil
}

// app is everything a command needs once the database is open.
type app struct {
	cfg     *config.Config
	store   *store.SQLiteStore
	reviews *reviews.Reviews
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStoreWithConfig(store.StoreConfig{Path: cfg.Database})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		log.Printf("store: using %s\n", cfg.Database)
	}
	return &app{cfg: cfg, store: s, reviews: reviews.New(s, s, s)}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) importer(cmd *cobra.Command) *importer.Service {
	client := provider.New(a.cfg.Provider.BaseURL, a.cfg.Provider.TokenURL, a.cfg.Provider.Timeout)
	svc := importer.NewService(a.reviews, client, a.store)
	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	svc.Verbose = verbose && !quiet
	return svc
}

func (a *app) admin() auth.Admin {
	return auth.Admin{User: a.cfg.Server.AdminUser, PasswordHash: a.cfg.Server.AdminPasswordHash}
}

// addScopeFlags adds --store and --website to a command.
func addScopeFlags(cmd *cobra.Command, storeID, websiteID *int64) {
	cmd.Flags().Int64Var(storeID, "store", *storeID, "store id")
	cmd.Flags().Int64Var(websiteID, "website", *websiteID, "website id")
	cmd.MarkFlagsMutuallyExclusive("store", "website")
}

// scopeFromFlags returns the scope selected by --store or --website,
// or the default scope when neither is given. Id 0 is the default scope.
func scopeFromFlags(cmd *cobra.Command, storeID, websiteID int64) model.Scope {
	switch {
	case cmd.Flags().Changed("store"):
		return model.StoreScope(storeID).Exact()
	case cmd.Flags().Changed("website"):
		return model.WebsiteScope(websiteID).Exact()
	}
	return model.DefaultScope()
}

// directory is what checkScope needs to validate ids.
type directory interface {
	ListWebsites(ctx context.Context) ([]model.Website, error)
	GetStore(ctx context.Context, id int64) (model.Store, bool, error)
}

// checkScope rejects writes to a store or website that does not exist.
func checkScope(ctx context.Context, dir directory, scope model.Scope) error {
	switch scope.Kind {
	case model.ScopeStores:
		if _, ok, err := dir.GetStore(ctx, scope.ID); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("store %d: not found", scope.ID)
		}
	case model.ScopeWebsites:
		websites, err := dir.ListWebsites(ctx)
		if err != nil {
			return err
		}
		for _, w := range websites {
			if w.ID == scope.ID {
				return nil
			}
		}
		return fmt.Errorf("website %d: not found", scope.ID)
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func cmdInitConfig() *cobra.Command {
	force := false
	var cmd = &cobra.Command{
		Use:          "init-config",
		Short:        "write a config file with the default settings",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if err := writeDefaultConfig(afero.NewOsFs(), path, force); err != nil {
				return err
			}
			log.Printf("%s: config created\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", force, "overwrite an existing file")
	return cmd
}

// writeDefaultConfig saves config.Default to path. An existing file is
// kept unless force is set.
func writeDefaultConfig(fs afero.Fs, path string, force bool) error {
	if exists, err := afero.Exists(fs, path); err != nil {
		return err
	} else if exists && !force {
		return fmt.Errorf("%s: already exists", path)
	}
	return config.Save(fs, path, config.Default())
}

func cmdInitDB() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "init-db",
		Short:        "create and initialize a new database file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := store.InitDatabase(cfg.Database); err != nil {
				return err
			}
			log.Printf("%s: database created\n", cfg.Database)
			return nil
		},
	}
	return cmd
}

func cmdCompactDB() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "compact-db",
		Short:        "checkpoint and vacuum the database file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := store.CompactDatabase(cfg.Database); err != nil {
				return err
			}
			log.Printf("%s: database compacted\n", cfg.Database)
			return nil
		},
	}
	return cmd
}

func cmdSeed() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "seed <seed.yaml>",
		Short:        "load websites, stores, and config values from a YAML file",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			seed, err := config.LoadSeed(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, w := range seed.Websites {
				if err := a.store.UpsertWebsite(ctx, w); err != nil {
					return err
				}
			}
			for _, st := range seed.Stores {
				if err := a.store.UpsertStore(ctx, st); err != nil {
					return err
				}
			}
			for _, v := range seed.Config {
				scope, _ := v.ScopeOf()
				if err := a.store.Set(ctx, v.Value, v.Path, scope); err != nil {
					return err
				}
			}
			if err := a.store.CleanType(ctx, reviews.CacheTypeConfig); err != nil {
				return err
			}
			log.Printf("%s: %d websites, %d stores, %d config values\n", args[0], len(seed.Websites), len(seed.Stores), len(seed.Config))
			return nil
		},
	}
	return cmd
}

func cmdStores() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "stores",
		Short:        "list websites and their stores",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			websites, err := a.store.ListWebsites(ctx)
			if err != nil {
				return err
			}
			stores, err := a.store.ListStores(ctx)
			if err != nil {
				return err
			}
			for _, w := range websites {
				fmt.Printf("website %d  %-12s %s\n", w.ID, w.Code, w.Name)
				for _, st := range stores {
					if st.WebsiteID == w.ID {
						fmt.Printf("  store %d  %-12s %s\n", st.ID, st.Code, st.Name)
					}
				}
			}
			return nil
		},
	}
	return cmd
}

func cmdConfig() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "config",
		Short: "read and write configuration values",
	}
	cmd.AddCommand(cmdConfigGet())
	cmd.AddCommand(cmdConfigSet())
	cmd.AddCommand(cmdConfigDelete())
	cmd.AddCommand(cmdConfigList())
	return cmd
}

func cmdConfigGet() *cobra.Command {
	var storeID, websiteID int64
	var cmd = &cobra.Command{
		Use:          "get <path>",
		Short:        "show the value stored at exactly one scope",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			scope := scopeFromFlags(cmd, storeID, websiteID)
			value, ok, err := a.store.Get(context.Background(), args[0], scope)
			if err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("%s: not set at %s", args[0], scope)
			}
			fmt.Println(value)
			return nil
		},
	}
	addScopeFlags(cmd, &storeID, &websiteID)
	return cmd
}

func cmdConfigSet() *cobra.Command {
	var storeID, websiteID int64
	var cmd = &cobra.Command{
		Use:          "set <path> <value>",
		Short:        "store a value at one scope",
		Long:         `Store a value at one scope. Changing api.clientId resets every store's client token.`,
		SilenceUsage: true,
		Args:         cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			path, value := args[0], args[1]
			scope := scopeFromFlags(cmd, storeID, websiteID)
			if err := checkScope(ctx, a.store, scope); err != nil {
				return err
			}
			if path == reviews.PathClientID {
				return a.reviews.SaveClientID(ctx, value, scope)
			}
			if err := a.store.Set(ctx, value, path, scope); err != nil {
				return err
			}
			return a.store.CleanType(ctx, reviews.CacheTypeConfig)
		},
	}
	addScopeFlags(cmd, &storeID, &websiteID)
	return cmd
}

func cmdConfigDelete() *cobra.Command {
	var storeID, websiteID int64
	var cmd = &cobra.Command{
		Use:          "delete <path>",
		Short:        "remove the value stored at one scope",
		Long:         `Remove the value stored at one scope so the next scope up shows through.`,
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			scope := scopeFromFlags(cmd, storeID, websiteID)
			if err := a.store.Delete(ctx, args[0], scope); err != nil {
				return err
			}
			return a.store.CleanType(ctx, reviews.CacheTypeConfig)
		},
	}
	addScopeFlags(cmd, &storeID, &websiteID)
	return cmd
}

func cmdConfigList() *cobra.Command {
	showSecrets := false
	var cmd = &cobra.Command{
		Use:          "list",
		Short:        "list every stored configuration value",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.ListConfig(context.Background())
			if err != nil {
				return err
			}
			for _, e := range entries {
				value := e.Value
				if !showSecrets && (e.Path == reviews.PathClientSecret || e.Path == reviews.PathClientToken) {
					value = mask(value)
				}
				fmt.Printf("%-12s %-22s %s\n", e.Scope, e.Path, value)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", showSecrets, "show client secrets and tokens")
	return cmd
}

func cmdCredentials() *cobra.Command {
	var storeID, websiteID int64
	unique := false
	var cmd = &cobra.Command{
		Use:          "credentials",
		Short:        "show the effective credentials for a scope",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if unique {
				creds, err := a.reviews.UniqueOauthData(ctx)
				if err != nil {
					return err
				}
				for id, cs := range creds {
					creds[id] = masked(cs)
				}
				return printJSON(creds)
			}

			scope := scopeFromFlags(cmd, storeID, websiteID)
			cs, ok, err := a.reviews.OauthData(ctx, scope)
			if err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("%s: no usable credentials", scope)
			}
			return printJSON(masked(cs))
		},
	}
	addScopeFlags(cmd, &storeID, &websiteID)
	cmd.Flags().BoolVar(&unique, "unique", unique, "show one credential set per client id across all stores")
	return cmd
}

func cmdImport() *cobra.Command {
	typ := reviews.DefaultType
	var cmd = &cobra.Command{
		Use:          "import",
		Short:        "fetch review summaries for every unique client and cache them",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.importer(cmd).Run(context.Background(), typ)
			if err != nil {
				return err
			}
			if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
				return nil
			}
			return printJSON(result.Records)
		},
	}
	cmd.Flags().StringVar(&typ, "type", typ, "label recorded with the import")
	return cmd
}

func cmdSummary() *cobra.Command {
	var storeID, websiteID int64
	var cmd = &cobra.Command{
		Use:          "summary",
		Short:        "show cached review summaries",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("store") && !cmd.Flags().Changed("website") {
				batch, err := a.reviews.AllSummaryData(ctx)
				if err != nil {
					return err
				} else if batch == nil {
					return fmt.Errorf("no summaries cached yet")
				}
				return printJSON(batch)
			}

			scope := scopeFromFlags(cmd, storeID, websiteID)
			rec, ok, err := a.reviews.SummaryData(ctx, scope)
			if err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("%s: no summary", scope)
			}
			return printJSON(rec)
		},
	}
	addScopeFlags(cmd, &storeID, &websiteID)
	return cmd
}

func cmdLastImport() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "last-import",
		Short:        "show when the last import ran",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			msg, ok, err := a.reviews.LastImported(context.Background())
			if err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("never imported")
			}
			fmt.Println(msg)
			return nil
		},
	}
	return cmd
}

func cmdHistory() *cobra.Command {
	limit := 20
	var cmd = &cobra.Command{
		Use:          "history",
		Short:        "list recent imports",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.store.ListImportRuns(context.Background(), limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Printf("%s  %-8s %3d clients %3d failures  %s  %s\n",
					run.StartedAt.Format("2006-01-02 15:04:05"), run.Type, run.Clients, run.Failures, run.ID, run.Error)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", limit, "number of runs to show")
	return cmd
}

func cmdResetTokens() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "reset-tokens",
		Short:        "clear the client token of every store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.reviews.ResetAllClientTokens(context.Background())
		},
	}
	return cmd
}

func cmdHashPassword() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "hash-password <password>",
		Short:        "print a bcrypt hash for server.admin_password_hash",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
	return cmd
}

func cmdVersion() *cobra.Command {
	showBuildInfo := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().BoolVar(&showBuildInfo, "build-info", showBuildInfo, "show build information")
		return nil
	}
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "display the application's version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showBuildInfo {
				fmt.Println(tfcreviews.Version().String())
				return nil
			}
			fmt.Println(tfcreviews.Version().Core())
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func masked(cs model.CredentialSet) model.CredentialSet {
	cs.ClientSecret = mask(cs.ClientSecret)
	cs.ClientToken = mask(cs.ClientToken)
	return cs
}

// mask keeps the last four characters of a secret.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
