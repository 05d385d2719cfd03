package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sszhu/biomni/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Set up a Biomni data directory",
	Long: `Set up a directory for use with Biomni.

This command checks prerequisites and scaffolds the data layout:
  - Verifies the python3, Rscript, and bash runtimes are on PATH
  - Checks whether an LLM credential source is configured
  - Creates the data directory with an example catalog.yaml
  - Creates a .biomni.yaml config template

The directory argument defaults to ./data.

Examples:
  biomni init             # Set up ./data
  biomni init ./lab-data  # Set up a specific directory
  biomni init --force     # Overwrite existing scaffold files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing scaffold files")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := "./data"
	if len(args) == 1 {
		dataDir = args[0]
	}

	fmt.Println("Checking prerequisites...")
	for _, runtime := range []string{"python3", "Rscript", "bash"} {
		if _, err := exec.LookPath(runtime); err != nil {
			printStatus("⚠", runtime+" not found (that runtime will be unavailable)", color.FgYellow)
		} else {
			printStatus("✓", runtime+" found", color.FgGreen)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	switch cfg.ResolveSource() {
	case config.SourceBedrock:
		printStatus("✓", "AWS region set, using Bedrock", color.FgGreen)
	case config.SourceCustom:
		printStatus("✓", "Custom base URL set", color.FgGreen)
	default:
		if _, err := config.GetAPIKey(cfg); err != nil {
			printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
		} else {
			printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	printStatus("✓", "Created "+dataDir, color.FgGreen)

	if err := writeScaffold(filepath.Join(dataDir, "catalog.yaml"), exampleCatalog); err != nil {
		return err
	}
	printStatus("✓", "Wrote "+filepath.Join(dataDir, "catalog.yaml"), color.FgGreen)

	if err := writeScaffold(".biomni.yaml", fmt.Sprintf(configTemplate, dataDir)); err != nil {
		return err
	}
	printStatus("✓", "Wrote .biomni.yaml", color.FgGreen)

	fmt.Printf("\n%s Biomni setup complete. Try:\n  biomni run \"your first task\"\n", color.GreenString("✓"))
	return nil
}

// writeScaffold writes a file unless it already exists and --force is
// not set.
func writeScaffold(path, content string) error {
	if _, err := os.Stat(path); err == nil && !initForce {
		printStatus("✓", path+" already exists (use --force to overwrite)", color.FgYellow)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("  %s %s\n", c.Sprint(symbol), message)
}

const exampleCatalog = `# Biomni resource catalog. Three categories are recognized:
# tools (analysis functions), datasets (data lake files), and
# knowledge (software libraries the agent may import).
tools:
  - name: blast_search
    description: Align a query sequence against a local BLAST database
datasets:
  - name: gene_info.parquet
    description: NCBI gene metadata snapshot
    noncommercial: false
knowledge:
  - name: scanpy
    description: Single-cell RNA-seq analysis toolkit
`

const configTemplate = `# Biomni project configuration. Values here override
# ~/.config/biomni/config.yaml; environment variables override both.
path: %s
llm:
  model: claude-sonnet-4-5
  temperature: 0.7
agent:
  max_iterations: 200
  self_critic: false
retriever:
  enabled: true
  limit: 25
harness:
  timeout: 600s
`
