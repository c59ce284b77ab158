// SPDX-License-Identifier: MIT
package cmd

import (
	"equalizer/internal/config"
	"equalizer/internal/params"
	"equalizer/internal/preset"

	"github.com/spf13/cobra"
)

func newPresetCommand(cfg *config.Config, opts *options) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Create and inspect preset files",
	}

	saveCmd := &cobra.Command{
		Use:   "save [PATH]",
		Short: "Write a preset from the defaults (or --from) plus --set overrides",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := params.NewStore()
			from, _ := cmd.Flags().GetString("from")
			if from != "" {
				if err := preset.Load(from, store); err != nil {
					return err
				}
			}
			if err := applyAssignments(store, opts.presetSet); err != nil {
				return err
			}
			path := cfg.Preset.Path
			if len(args) == 1 {
				path = args[0]
			}
			if err := preset.Save(path, store); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}
	saveCmd.Flags().String("from", "", "Start from this preset instead of the defaults")
	saveCmd.Flags().StringArrayVar(&opts.presetSet, "set", nil,
		`Set a parameter, e.g. --set "LowCut Freq=80" (repeatable)`)

	showCmd := &cobra.Command{
		Use:   "show [PATH]",
		Short: "Print the values of a preset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Preset.Path
			if len(args) == 1 {
				path = args[0]
			}
			store := params.NewStore()
			if err := preset.Load(path, store); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, p := range store.Parameters() {
				printf(w, "%-18s %s\n", p.ID, p.Format(p.Value()))
			}
			return nil
		},
	}

	presetCmd.AddCommand(saveCmd, showCmd)
	return presetCmd
}

// applyAssignments sets every "ID=VALUE" pair on store.
func applyAssignments(store *params.Store, assignments []string) error {
	for _, a := range assignments {
		id, v, err := parseAssignment(a)
		if err != nil {
			return err
		}
		if err := store.Set(id, v); err != nil {
			return err
		}
	}
	return nil
}
