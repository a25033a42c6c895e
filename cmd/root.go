package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flanksource/commons/logger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crittrail/crittrail/analyzer"
	"github.com/crittrail/crittrail/analyzer/perlcritic"
	"github.com/crittrail/crittrail/git"
	"github.com/crittrail/crittrail/internal/cache"
)

var (
	cfgFile  string
	dbPath   string
	repoPath string
	profile  string
	noCache  bool
	force    bool
)

var rootCmd = &cobra.Command{
	Use:   "crittrail",
	Short: "Track perlcritic violations across git history",
	Long: `crittrail runs perlcritic over the Perl files of a git repository, stores
per-file violation snapshots keyed by commit, and reports how violations
change between commits or against the working tree.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.crittrail.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "snapshot store path (default is <repo>/.crittrail.db)")
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo-path", ".", "path inside the git repository to operate on")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "perlcritic profile (default is $HOME/.perlcriticrc when present)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the analysis result cache")

	logger.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".crittrail")
	}

	viper.SetEnvPrefix("crittrail")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Infof("Using config file: %s", viper.ConfigFileUsed())
	}
}

// storePath resolves the snapshot store location: the --db flag, then the
// config file, then .crittrail.db at the repository root.
func storePath(repo git.Repository) (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if v := viper.GetString("db"); v != "" {
		return v, nil
	}
	if repo == nil {
		return "", fmt.Errorf("no --db given and not inside a git repository")
	}
	return filepath.Join(repo.Root(), ".crittrail.db"), nil
}

// resolveProfile decides which perlcritic profile to use. An explicitly
// named profile must exist. The default $HOME/.perlcriticrc is picked up
// only when present; its absence means no profile at all.
func resolveProfile() (string, error) {
	named := profile
	if named == "" {
		named = viper.GetString("profile")
	}
	if named != "" {
		if _, err := os.Stat(named); err != nil {
			return "", fmt.Errorf("profile %s: %w", named, err)
		}
		return named, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	def := filepath.Join(home, ".perlcriticrc")
	if _, err := os.Stat(def); err != nil {
		return "", nil
	}
	return def, nil
}

// newEngine builds the analysis engine, wrapped with the result cache
// unless --no-cache is set. A cache that fails to open is skipped with a
// warning; analysis always remains possible.
func newEngine() analyzer.Engine {
	engine := perlcritic.New()
	if noCache {
		return engine
	}
	dir, err := cache.DefaultDir()
	if err != nil {
		logger.Warnf("result cache unavailable: %v", err)
		return engine
	}
	results, err := cache.NewResultCache(dir)
	if err != nil {
		logger.Warnf("result cache unavailable: %v", err)
		return engine
	}
	return analyzer.WithCache(engine, results)
}

// stdinPiped reports whether stdin carries piped data rather than a
// terminal.
func stdinPiped() bool {
	return !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd())
}
