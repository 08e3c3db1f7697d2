package commands

import (
	"context"

	"github.com/google/uuid"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/spf13/cobra"
	"github.com/vsariola/bats/cmd"
	"github.com/vsariola/bats/config"
	"github.com/vsariola/bats/control"
	"github.com/vsariola/bats/engine"
	"github.com/vsariola/bats/plugin"
)

var (
	cfgFile    string
	sampleRate int
	bufferSize int
)

var rootCmd = &cobra.Command{
	Use:   "bats",
	Short: "Plugin host groovebox",
	Long: `bats hosts tracks of instrument and effect plugins and mixes them in
real time. Tracks are changed from a console while the audio plays.

Configuration is read from config.yml in the bats directory of the user
config dir, or from the file given with --config.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/bats/config.yml)")
	rootCmd.PersistentFlags().IntVar(&sampleRate, "sample-rate", 0, "sample rate in Hz, overrides the config")
	rootCmd.PersistentFlags().IntVar(&bufferSize, "buffer-size", 0, "buffer size in frames, overrides the config")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config and applies the flags on top of it.
func loadConfig(c *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if c.Flags().Changed("sample-rate") {
		cfg.SampleRate = sampleRate
	}
	if c.Flags().Changed("buffer-size") {
		cfg.BufferSize = bufferSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config")
	}
	return &cfg, nil
}

// session is an engine with its control facade and plugin registry.
type session struct {
	config   *config.Config
	registry *plugin.Registry
	engine   *engine.Engine
	control  *control.Control
}

func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	registry, err := cmd.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	e := engine.New(engine.NewBroker(cfg.CommandCapacity), cfg.EngineOptions(id))
	s := &session{config: cfg, registry: registry, engine: e, control: control.New(e, registry)}
	go s.control.Run(ctx)
	logger.Tf(ctx, "session %v: %d Hz, %d frames, %d plugins", id, cfg.SampleRate, cfg.BufferSize, len(registry.Plugins()))
	return s, nil
}

// load makes the tracks of the session file, or the tracks of the config if
// path is empty.
func (s *session) load(path string) error {
	if path != "" {
		sess, err := control.ReadSession(path)
		if err != nil {
			return err
		}
		return s.control.Load(sess)
	}
	for i, t := range s.config.Tracks {
		_, err := s.control.MakeTrack(control.WithPlugins(t.Plugins...), control.WithVolume(t.Volume), control.WithEnabled(t.Enabled))
		if err != nil {
			return errors.Wrapf(err, "config track %d", i)
		}
	}
	return nil
}

func (s *session) close(ctx context.Context) {
	s.control.Close()
	if err := s.registry.Close(); err != nil {
		logger.Wf(ctx, "closing plugin formats failed: %v", err)
	}
}
