package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	corecmd "github.com/m3rciful/studybot/core/cmd"
	coreconfig "github.com/m3rciful/studybot/core/config"
	"github.com/m3rciful/studybot/internal/catalog"
	"github.com/m3rciful/studybot/internal/storage"
)

var errMissingFiles = errors.New("catalog resources without a file")

func catalogCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the menu and resource catalog",
	}

	var format string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the expanded catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cat, err := loadCatalog(*configPath)
			if err != nil {
				return err
			}
			return dumpCatalog(cmd.OutOrStdout(), cat, format)
		},
	}
	dump.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")

	var strict bool
	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the catalog and report resources without a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cat, err := loadCatalog(*configPath)
			if err != nil {
				return err
			}
			return checkCatalog(cmd.OutOrStdout(), cfg.Resources.Root, cat, strict)
		},
	}
	check.Flags().BoolVar(&strict, "strict", false, "fail when a resource has no file")

	cmd.AddCommand(dump, check)
	return cmd
}

// loadCatalog reads the configuration without requiring Telegram credentials.
func loadCatalog(configPath string) (*coreconfig.Config, *catalog.Catalog, error) {
	path, err := corecmd.ResolveConfigPath(corecmd.Options{
		ConfigPath:        configPath,
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: defaultConfigPath,
	})
	if err != nil {
		return nil, nil, err
	}
	cfg, err := coreconfig.Read(path)
	if err != nil {
		return nil, nil, err
	}
	if err := coreconfig.NormalizeContent(cfg); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", catalog.ErrConfiguration, err)
	}
	cat, err := catalog.Build(cfg.Catalog, cfg.Resources.Root)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cat, nil
}

func dumpCatalog(w io.Writer, cat *catalog.Catalog, format string) error {
	snap := cat.Snapshot()
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml", "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: use yaml or json", format)
	}
}

func checkCatalog(w io.Writer, root string, cat *catalog.Catalog, strict bool) error {
	inv, err := storage.NewInventory(root)
	if err != nil {
		return err
	}
	if err := inv.Scan(); err != nil {
		return err
	}
	stats := cat.Stats()
	missing := inv.Missing(cat.Resources())

	fmt.Fprintf(w, "menus: %d\nresources: %d\nshortcuts: %d\ndangling: %d\nmissing files: %d\n",
		stats.Menus, stats.Resources, stats.Shortcuts, stats.Dangling, len(missing))
	for _, key := range cat.Dangling() {
		fmt.Fprintf(w, "  dangling  %s\n", key)
	}
	for _, r := range missing {
		fmt.Fprintf(w, "  missing   %s  %s\n", r.Key, r.Path)
	}
	if strict && len(missing) > 0 {
		return fmt.Errorf("%w: %d", errMissingFiles, len(missing))
	}
	return nil
}
