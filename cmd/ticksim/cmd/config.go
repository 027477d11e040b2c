package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/ticksim/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate, validate or show configuration files",
	Long: `Manage run configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file
  show     - Print the effective configuration after .env and TICKSIM_* overrides

Examples:
  ticksim config init -o backtest.yaml
  ticksim config init --live -o live.yaml
  ticksim config validate -f backtest.yaml
  ticksim -c live.yaml config show`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configInitOutput   string
	configInitLive     bool
	configValidatePath string
	configShowLive     bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "ticksim.yaml", "output config file path")
	configInitCmd.Flags().BoolVar(&configInitLive, "live", false, "use the live defaults")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
	configShowCmd.Flags().BoolVar(&configShowLive, "live", false, "start from the live defaults")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configInitLive {
		cfg = config.DefaultLive()
	}
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	if configInitLive {
		fmt.Fprintf(out, "  ticksim -c %s live\n", configInitOutput)
	} else {
		fmt.Fprintf(out, "  ticksim -c %s backtest --data <bars.csv>\n", configInitOutput)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Account: %s (%.2f %s)\n", cfg.Account.ID, cfg.Account.Cash, cfg.Account.Currency)
	fmt.Fprintf(out, "  Broker: margin ratio %.4f, commission %.4f, spread %.5f\n",
		cfg.Broker.MarginRatio, cfg.Broker.Commission, cfg.Broker.Spread)
	fmt.Fprintf(out, "  Strategy: %s on %s\n", cfg.Strategy.Name, cfg.Strategy.Instrument)
	fmt.Fprintf(out, "  Journal: %s\n", cfg.Journal.Type)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configShowLive)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
