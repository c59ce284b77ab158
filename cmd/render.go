// SPDX-License-Identifier: MIT
package cmd

import (
	"time"

	"equalizer/internal/audio"
	"equalizer/internal/config"
	"equalizer/internal/params"
	"equalizer/internal/plugin"

	"github.com/spf13/cobra"
)

var timeNow = time.Now

func newRenderCommand(cfg *config.Config, opts *options) *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render IN.wav OUT.wav",
		Short: "Equalize a WAV file offline with the current preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := params.NewStore()
			if err := loadPreset(cfg.Preset.Path, store); err != nil {
				return err
			}
			if err := applyAssignments(store, opts.presetSet); err != nil {
				return err
			}

			blockSize := opts.blockSize
			if blockSize <= 0 {
				blockSize = cfg.Audio.FramesPerBuffer
			}

			start := timeNow()
			stats, err := audio.RenderFile(plugin.New(store), args[0], args[1], blockSize)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Rendered %s -> %s (%d frames, %d ch, %d Hz) in %s\n",
				args[0], args[1], stats.Frames, stats.Channels, stats.SampleRate,
				timeNow().Sub(start).Round(time.Millisecond))
			return nil
		},
	}
	renderCmd.Flags().IntVar(&opts.blockSize, "block-size", 0,
		"Frames per processing block (default: audio.frames_per_buffer)")
	renderCmd.Flags().StringArrayVar(&opts.presetSet, "set", nil,
		`Override a parameter, e.g. --set "Peak Gain=6" (repeatable)`)
	return renderCmd
}
