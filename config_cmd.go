package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect resolved configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the fully resolved configuration",
		Long: `Print the configuration foldersync would actually use: the config
file's contents merged over built-in defaults, with no unset fields.`,
		RunE: runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(cc.Cfg)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cc.Cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	fmt.Printf("# resolved from %s\n%s", cc.Flags.ConfigPath, buf.String())

	return nil
}
