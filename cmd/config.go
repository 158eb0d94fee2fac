package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himansukumarhkr/Click/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Show or change saved settings",
	Long: `With no arguments, print every setting. With a key, print its value.
With a key and a value, store the value. Booleans take True or False.

Keys: ` + strings.Join(config.Keys, ", "),
	Args: cobra.MaximumNArgs(2),
	// A broken settings file must not stop the user from fixing it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Path()
		if err != nil {
			return err
		}
		settingsPath = p
		loaded, err := config.Load(p)
		if err != nil {
			cmd.PrintErrf("warning: %v (starting from defaults)\n", err)
			d := config.Defaults()
			loaded = &d
		}
		settings = *loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetSettings()

		switch len(args) {
		case 0:
			for _, kv := range cfg.Pairs() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", kv[0], kv[1])
			}
			return nil
		case 1:
			v, ok := cfg.Get(args[0])
			if !ok {
				return unknownKey(args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}

		key, value := args[0], args[1]
		if !slices.Contains(config.Keys, key) {
			return unknownKey(key)
		}
		if !cfg.Set(key, value) {
			return fmt.Errorf("invalid value %q for %s", value, key)
		}
		cfg.Normalize()
		if err := config.Save(settingsPath, &cfg); err != nil {
			return err
		}
		v, _ := cfg.Get(key)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, v)
		return nil
	},
}

func unknownKey(k string) error {
	return fmt.Errorf("unknown setting %q (known: %s)", k, strings.Join(config.Keys, ", "))
}

func init() {
	rootCmd.AddCommand(configCmd)
}
