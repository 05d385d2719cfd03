package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sszhu/biomni/internal/catalog"
	"github.com/sszhu/biomni/internal/config"
)

var (
	resourcesCategory   string
	resourcesCommercial bool
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the resource catalog",
	Long: `List the resources the agent can be told about: analysis tools,
data lake entries, and software libraries.

The catalog is read from <path>/catalog.yaml in the configured data
directory. Use --commercial to preview what remains after the
commercial-licensing filter.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		cat, err := catalog.LoadDir(cfg.Path)
		if err != nil {
			return fmt.Errorf("load catalog from %s: %w", cfg.Path, err)
		}
		cat = cat.FilterCommercial(resourcesCommercial || cfg.Retriever.CommercialMode)

		header := color.New(color.FgCyan, color.Bold)
		nonCommercial := color.New(color.FgYellow)

		var current catalog.Category
		shown := 0
		for _, r := range cat.Resources() {
			if resourcesCategory != "" && string(r.Category) != resourcesCategory {
				continue
			}
			if r.Category != current {
				current = r.Category
				header.Fprintf(os.Stdout, "\n%s\n", current)
			}
			fmt.Printf("  %s: %s", r.Name, r.Description)
			if r.NonCommercial {
				nonCommercial.Print("  [non-commercial]")
			}
			fmt.Println()
			shown++
		}

		fmt.Printf("\n%d resources\n", shown)
		return nil
	},
}

func init() {
	resourcesCmd.Flags().StringVar(&resourcesCategory, "category", "", "Only show one category: tool, dataset, or knowledge")
	resourcesCmd.Flags().BoolVar(&resourcesCommercial, "commercial", false, "Apply the commercial-licensing filter")
}
