package commands

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/spf13/cobra"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/cmd"
	"github.com/vsariola/bats/console"
	"github.com/vsariola/bats/midi"
	"github.com/vsariola/bats/oto"
)

var runSession string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play the tracks and read commands from stdin",
	Long: `Start the engine on the default audio device, connect the configured
MIDI input and read console commands from stdin. Type help for the list of
commands.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(logger.WithContext(context.Background()), os.Interrupt)
		defer stop()

		s, err := newSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		midiContext := cmd.NewMidiContext(cfg.SampleRate)
		defer midiContext.Close()
		if cfg.MIDIInput != "" {
			if input, ok := midi.FindInputByPrefix(midiContext, cfg.MIDIInput); ok {
				if err := input.Open(); err != nil {
					logger.Wf(ctx, "failed to open MIDI input %q: %v", input, err)
				} else {
					logger.Tf(ctx, "MIDI input %v", input)
				}
			} else {
				logger.Wf(ctx, "no MIDI input device found with prefix %q", cfg.MIDIInput)
			}
		}

		audioContext, err := oto.NewContext(cfg.SampleRate, cfg.BufferSize)
		if err != nil {
			return err
		}
		defer audioContext.Close()
		player := audioContext.Play(func(buf bats.AudioBuffer) error {
			s.engine.Process(buf, midiContext)
			return nil
		})
		defer player.Close()

		if err := s.load(runSession); err != nil {
			logger.Ef(ctx, "loading tracks failed: %v", err)
		}

		con, err := console.New(s.control, c.OutOrStdout(), console.DefaultTheme)
		if err != nil {
			return err
		}
		con.Wait = time.Second
		if err := con.Run(ctx, c.InOrStdin()); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runSession, "session", "", "session file to load instead of the tracks of the config")
}
