// SPDX-License-Identifier: MIT
package cmd

import (
	"equalizer/internal/audio"
	"equalizer/internal/config"
	"equalizer/internal/tui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			return audio.ListDevices(cmd.OutOrStdout())
		},
	}
}

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Browse audio devices and print a matching config snippet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			sel, ok, err := tui.RunDeviceList(audio.HostDevices)
			if err != nil || !ok {
				return err
			}
			return printSelection(cmd, sel)
		},
	}
}

// printSelection writes the audio section for sel as YAML.
func printSelection(cmd *cobra.Command, sel tui.Selection) error {
	snippet := struct {
		Audio config.AudioConfig `yaml:"audio"`
	}{config.Default().Audio}
	snippet.Audio.InputDevice = sel.InputDevice
	snippet.Audio.OutputDevice = sel.OutputDevice
	snippet.Audio.SampleRate = sel.SampleRate

	out, err := yaml.Marshal(snippet)
	if err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "%s", out)
	return nil
}
