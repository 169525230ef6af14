package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/csams/mdview/internal/config"
	"github.com/csams/mdview/internal/markdown"
	"github.com/csams/mdview/internal/sample"
)

type ctxKey string

const appKey ctxKey = "app"

// App is what every subcommand works from: the loaded document and its
// converted form.
type App struct {
	Name   string
	Source []byte
	Config *config.Config
	Result markdown.ConversionResult
}

// Execute builds the root command and runs it.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the Cobra root command and wires dependencies.
func NewRootCmd() *cobra.Command {
	var (
		cfgPath string
		file    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "mdview",
		Short:         "Render a CommonMark document into styled runs, images and links",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfgPath, file, verbose, cmd)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (json|yaml|toml)")
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "", "markdown file to load (default: bundled sample)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "report skipped nodes on stderr")

	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newLinksCmd())
	cmd.AddCommand(newImagesCmd())
	cmd.AddCommand(newTapCmd())
	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newConfigCmd())

	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Help() }

	return cmd
}

func buildApp(cfgPath, file string, verbose bool, cmd *cobra.Command) (*App, error) {
	var cm *config.ConfigManager
	if cfgPath != "" {
		cm = config.NewConfigManagerForFile(cfgPath)
	} else {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		cm = config.NewConfigManager(dir)
	}
	if err := cm.Load(); err != nil {
		return nil, err
	}
	cfg := cm.GetConfig()

	th, err := cfg.Theme()
	if err != nil {
		return nil, err
	}

	name, source := sample.Name, sample.Document()
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read markdown file: %w", err)
		}
		name, source = file, data
	}

	opts := []markdown.Option{
		markdown.WithTheme(th),
		markdown.WithMaxDepth(cfg.MaxDepth),
	}
	if verbose {
		opts = append(opts, markdown.WithLogger(log.New(cmd.ErrOrStderr(), "mdview: ", 0)))
	}
	converter := markdown.NewMarkdownConverter(opts...)

	return &App{
		Name:   name,
		Source: source,
		Config: cfg,
		Result: converter.Convert(string(source)),
	}, nil
}

func getApp(cmd *cobra.Command) (*App, error) {
	app, ok := cmd.Context().Value(appKey).(*App)
	if !ok || app == nil {
		return nil, errors.New("internal error: app not initialized")
	}
	return app, nil
}
