package commands

import (
	"context"
	"os"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/spf13/cobra"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/cmd"
)

var (
	renderSeconds float64
	renderOut     string
	renderSession string
	renderNote    int
	renderPCM16   bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the tracks offline to a .wav file",
	Long: `Render the tracks of the config, or of a session file, without an
audio device. With --note, every track gets a note on at the start and a note
off at half the length.

Example:
  bats render --session song.yml --seconds 8 --note 60 --out song.wav`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		if renderOut == "" {
			return errors.New("--out is required")
		}
		if renderSeconds <= 0 {
			return errors.Errorf("--seconds must be positive, got %v", renderSeconds)
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		ctx := logger.WithContext(context.Background())
		s, err := newSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.close(ctx)
		if err := s.load(renderSession); err != nil {
			return err
		}

		frames := int(renderSeconds * float64(cfg.SampleRate))
		notes := &cmd.Notes{}
		if renderNote >= 0 && renderNote < 128 {
			notes.Events = []bats.MIDIEvent{
				bats.NoteOnEvent(0, 0, byte(renderNote), 100),
				bats.NoteOffEvent(frames/2, 0, byte(renderNote)),
			}
		}
		start := time.Now()
		buf := cmd.Render(s.engine, notes, frames, cfg.BufferSize)
		snap := s.engine.Store().Load()
		logger.Tf(ctx, "rendered %v in %v, %d overruns, peak %v", renderSeconds, time.Since(start), snap.Settings.Overruns, buf.Peak())

		f, err := os.Create(renderOut)
		if err != nil {
			return errors.Wrapf(err, "create %v", renderOut)
		}
		if err := buf.Wav(f, cfg.SampleRate, renderPCM16); err != nil {
			f.Close()
			return errors.Wrapf(err, "write %v", renderOut)
		}
		return f.Close()
	},
}

func init() {
	renderCmd.Flags().Float64VarP(&renderSeconds, "seconds", "s", 4, "length of the rendering")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output .wav file")
	renderCmd.Flags().StringVar(&renderSession, "session", "", "session file to render instead of the tracks of the config")
	renderCmd.Flags().IntVar(&renderNote, "note", -1, "MIDI note to play, -1 for none")
	renderCmd.Flags().BoolVar(&renderPCM16, "pcm16", false, "write 16-bit integers instead of 32-bit floats")
}
