// policyctl validates and inspects policy configuration before it is applied.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oarkflow/policyeval"
)

var rootCmd = &cobra.Command{
	Use:   "policyctl",
	Short: "Policy configuration tool",
	Long:  "Validates policy rule expressions against reference data and inspects the predicate catalog.",
}

var validateCmd = &cobra.Command{
	Use:   "validate <config file>",
	Short: "Validate every rule expression in a policy configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the predicate functions available to rule expressions",
	RunE:  runFunctions,
}

var statsCmd = &cobra.Command{
	Use:   "stats <config file>",
	Short: "Show configuration statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*policyeval.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	loader := policyeval.NewConfigLoader()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loader.LoadYAML(data)
	case ".json":
		return loader.LoadJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args[0])
	if err != nil {
		return err
	}
	registry := policyeval.BuiltinRegistry()
	errs := cfg.Validate(context.Background(), registry)
	if len(errs) == 0 {
		rules := 0
		for _, p := range cfg.Policies {
			rules += len(p.Rules)
		}
		fmt.Printf("OK: %d rules across %d policies validated\n", rules, len(cfg.Policies))
		return nil
	}
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", e)
	}
	return fmt.Errorf("%d invalid rule expressions", len(errs))
}

func runFunctions(cmd *cobra.Command, args []string) error {
	registry := policyeval.BuiltinRegistry()
	for _, fn := range registry.Functions() {
		fmt.Printf("%s\n", fn.Name)
		fmt.Printf("  input:       %s\n", fn.Input)
		fmt.Printf("  description: %s\n", fn.Description)
		if len(fn.Examples) > 0 {
			fmt.Printf("  examples:    %s\n", strings.Join(fn.Examples, ", "))
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args[0])
	if err != nil {
		return err
	}
	rules := 0
	for _, p := range cfg.Policies {
		rules += len(p.Rules)
	}
	fmt.Printf("tags:     %d\n", len(cfg.Tags))
	fmt.Printf("roles:    %d\n", len(cfg.Roles))
	fmt.Printf("teams:    %d\n", len(cfg.Teams))
	fmt.Printf("users:    %d\n", len(cfg.Users))
	fmt.Printf("policies: %d (%d rules)\n", len(cfg.Policies), rules)
	return nil
}
