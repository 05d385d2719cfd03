package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sszhu/biomni/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Display the effective configuration after merging defaults, the user
config, project overrides, and environment variables.

Without arguments, displays all values. With a key argument, displays
just that value.

Configuration is stored at ~/.config/biomni/config.yaml
Project-specific overrides can be placed in .biomni.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if len(args) == 1 {
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		}

		displayAllConfig(cfg)
		return nil
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	for _, key := range configKeys {
		value, _ := getConfigValue(cfg, key)
		fmt.Printf("%s: %s\n", key, value)
	}
	fmt.Fprintf(os.Stdout, "\nconfig file: %s\n", config.GetUserConfigPath())
}

var configKeys = []string{
	"path",
	"llm.model",
	"llm.temperature",
	"llm.source",
	"llm.api_key",
	"llm.base_url",
	"llm.aws_region",
	"llm.max_retries",
	"agent.max_iterations",
	"agent.parse_retries",
	"agent.self_critic",
	"agent.critic_rounds",
	"agent.prompt_budget",
	"retriever.enabled",
	"retriever.limit",
	"retriever.commercial_mode",
	"harness.timeout",
	"harness.capture_limit",
	"harness.python_cmd",
	"harness.r_cmd",
	"harness.bash_cmd",
}

// getConfigValue returns the display string for one key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "path":
		return cfg.Path, nil
	case "llm.model":
		return cfg.LLM.Model, nil
	case "llm.temperature":
		return fmt.Sprintf("%g", cfg.LLM.Temperature), nil
	case "llm.source":
		return string(cfg.ResolveSource()), nil
	case "llm.api_key":
		return config.MaskAPIKey(cfg.LLM.APIKey), nil
	case "llm.base_url":
		return cfg.LLM.BaseURL, nil
	case "llm.aws_region":
		return cfg.LLM.AWSRegion, nil
	case "llm.max_retries":
		return fmt.Sprintf("%d", cfg.LLM.MaxRetries), nil
	case "agent.max_iterations":
		return fmt.Sprintf("%d", cfg.Agent.MaxIterations), nil
	case "agent.parse_retries":
		return fmt.Sprintf("%d", cfg.Agent.ParseRetries), nil
	case "agent.self_critic":
		return fmt.Sprintf("%t", cfg.Agent.SelfCritic), nil
	case "agent.critic_rounds":
		return fmt.Sprintf("%d", cfg.Agent.CriticRounds), nil
	case "agent.prompt_budget":
		return fmt.Sprintf("%d", cfg.Agent.PromptBudget), nil
	case "retriever.enabled":
		return fmt.Sprintf("%t", cfg.Retriever.Enabled), nil
	case "retriever.limit":
		return fmt.Sprintf("%d", cfg.Retriever.Limit), nil
	case "retriever.commercial_mode":
		return fmt.Sprintf("%t", cfg.Retriever.CommercialMode), nil
	case "harness.timeout":
		return cfg.Harness.Timeout.String(), nil
	case "harness.capture_limit":
		return fmt.Sprintf("%d", cfg.Harness.CaptureLimit), nil
	case "harness.python_cmd":
		return cfg.Harness.PythonCmd, nil
	case "harness.r_cmd":
		return cfg.Harness.RCmd, nil
	case "harness.bash_cmd":
		return cfg.Harness.BashCmd, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}
