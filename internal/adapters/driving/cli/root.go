// Package cli implements the command-line interface. Commands are thin
// adapters over the driving ports; wiring happens in main.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
	"github.com/custodia-labs/paperlens/internal/core/ports/driving"
	"github.com/custodia-labs/paperlens/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Persistent flags.
var (
	verboseFlag bool
	dataDirFlag string
)

// Services used by the commands, injected via SetServices or built by
// the setup hook once flags are parsed.
var (
	indexingService driving.IndexingService
	searchService   driving.SearchService
	contextService  driving.ContextService
	pageExtractor   driven.PageExtractor
	documentStore   driven.DocumentStore
)

// setupHook builds the services once persistent flags are known.
// Injected from main; nil when services were set directly.
var setupHook func(dataDir string) (Services, error)

var rootCmd = &cobra.Command{
	Use:   "paperlens",
	Short: "Index and search research papers",
	Long: `Paperlens indexes PDF research papers for semantic search.
It detects the structure of academic papers, chunks text along sentence
boundaries, and serves vector, keyword, and hybrid queries over the
resulting index.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)

		if setupHook == nil {
			return nil
		}
		services, err := setupHook(dataDirFlag)
		if err != nil {
			return err
		}
		SetServices(services)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default ~/.paperlens)")
}

// Services bundles everything the commands need.
type Services struct {
	Indexing  driving.IndexingService
	Search    driving.SearchService
	Context   driving.ContextService
	Extractor driven.PageExtractor
	Documents driven.DocumentStore
}

// SetServices injects the service implementations used by commands.
func SetServices(s Services) {
	indexingService = s.Indexing
	searchService = s.Search
	contextService = s.Context
	pageExtractor = s.Extractor
	documentStore = s.Documents
}

// SetSetupHook registers a callback that builds the services after
// persistent flags are parsed, so --data-dir can influence wiring.
func SetSetupHook(hook func(dataDir string) (Services, error)) {
	setupHook = hook
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute parses arguments and runs the selected command.
func Execute() error {
	return rootCmd.Execute()
}
