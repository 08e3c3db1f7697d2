package console

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/control"
)

type (
	command struct {
		args     string
		help     string
		min, max int // number of arguments, max < 0 is unbounded
		run      func(c *Console, ctx context.Context, args []string) error
	}

	helpLine struct {
		Name, Args, Help string
	}
)

var commands map[string]command

func init() {
	commands = map[string]command{
		"help": {help: "list the commands", run: func(c *Console, ctx context.Context, args []string) error {
			lines := make([]helpLine, 0, len(commands))
			for name, cmd := range commands {
				lines = append(lines, helpLine{Name: name, Args: cmd.args, Help: cmd.help})
			}
			sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
			return c.render("help", lines)
		}},
		"quit": {help: "leave the console", run: func(c *Console, ctx context.Context, args []string) error {
			return ErrQuit
		}},
		"plugins": {help: "list the available plugins", run: func(c *Console, ctx context.Context, args []string) error {
			return c.render("plugins", c.control.Plugins())
		}},
		"tracks": {help: "list the tracks", run: func(c *Console, ctx context.Context, args []string) error {
			tracks := c.control.Tracks()
			views := make([]trackView, len(tracks))
			for i, t := range tracks {
				views[i] = c.trackView(t)
			}
			return c.render("tracks", views)
		}},
		"track": {args: "<track>", help: "show a track", min: 1, max: 1, run: func(c *Console, ctx context.Context, args []string) error {
			id, err := parseTrack(args[0])
			if err != nil {
				return err
			}
			info, ok := c.control.Track(id)
			if !ok {
				return errors.Wrapf(bats.ErrUnknownTrack, "track %d", id)
			}
			return c.render("track", c.trackView(info))
		}},
		"instance": {args: "<instance>", help: "show a plugin instance", min: 1, max: 1, run: func(c *Console, ctx context.Context, args []string) error {
			id, err := parseInstance(args[0])
			if err != nil {
				return err
			}
			info, ok := c.control.PluginInstance(id)
			if !ok {
				return errors.Wrapf(bats.ErrUnknownPluginInstance, "instance %d", id)
			}
			return c.render("instance", c.instanceView(info))
		}},
		"settings": {help: "show the engine settings", run: func(c *Console, ctx context.Context, args []string) error {
			return c.render("settings", c.control.Settings())
		}},
		"make-track": {args: "[plugin...]", help: "make a track with a chain of plugins", max: -1, run: func(c *Console, ctx context.Context, args []string) error {
			plugins := make([]bats.PluginID, len(args))
			for i, a := range args {
				plugins[i] = bats.PluginID(a)
			}
			id, err := c.control.MakeTrack(control.WithPlugins(plugins...))
			if err != nil {
				return err
			}
			return c.created(ctx, fmt.Sprintf("track %d", id))
		}},
		"delete-track": {args: "<track>", help: "delete a track and its plugins", min: 1, max: 1, run: func(c *Console, ctx context.Context, args []string) error {
			id, err := parseTrack(args[0])
			if err != nil {
				return err
			}
			return c.ok(ctx, c.control.DeleteTrack(id))
		}},
		"instantiate": {args: "<track> <plugin>", help: "append a plugin to a track", min: 2, max: 2, run: func(c *Console, ctx context.Context, args []string) error {
			track, err := parseTrack(args[0])
			if err != nil {
				return err
			}
			id, err := c.control.InstantiatePlugin(track, bats.PluginID(args[1]))
			if err != nil {
				return err
			}
			return c.created(ctx, fmt.Sprintf("instance %d", id))
		}},
		"delete-instance": {args: "<track> <instance>", help: "remove a plugin from a track", min: 2, max: 2, run: func(c *Console, ctx context.Context, args []string) error {
			track, err := parseTrack(args[0])
			if err != nil {
				return err
			}
			inst, err := parseInstance(args[1])
			if err != nil {
				return err
			}
			return c.ok(ctx, c.control.DeletePluginInstance(track, inst))
		}},
		"volume": {args: "<track> <volume>", help: "set the volume of a track", min: 2, max: 2, run: func(c *Console, ctx context.Context, args []string) error {
			track, err := parseTrack(args[0])
			if err != nil {
				return err
			}
			v, err := parseFloat(args[1])
			if err != nil {
				return err
			}
			return c.ok(ctx, c.control.SetVolume(track, float32(v)))
		}},
		"enable": {args: "<track>", help: "unmute a track", min: 1, max: 1, run: func(c *Console, ctx context.Context, args []string) error {
			return c.setEnabled(ctx, args[0], true)
		}},
		"disable": {args: "<track>", help: "mute a track", min: 1, max: 1, run: func(c *Console, ctx context.Context, args []string) error {
			return c.setEnabled(ctx, args[0], false)
		}},
		"param": {args: "<track> <instance> <param> <value>", help: "set a plugin parameter", min: 4, max: 4, run: func(c *Console, ctx context.Context, args []string) error {
			track, err := parseTrack(args[0])
			if err != nil {
				return err
			}
			inst, err := parseInstance(args[1])
			if err != nil {
				return err
			}
			param, err := strconv.Atoi(args[2])
			if err != nil {
				return errors.Errorf("invalid parameter %q", args[2])
			}
			v, err := parseFloat(args[3])
			if err != nil {
				return err
			}
			return c.ok(ctx, c.control.SetParam(track, inst, param, float32(v)))
		}},
		"bpm": {args: "<bpm>", help: "set the tempo", min: 1, max: 1, run: func(c *Console, ctx context.Context, args []string) error {
			v, err := parseFloat(args[0])
			if err != nil {
				return err
			}
			return c.ok(ctx, c.control.SetBPM(v))
		}},
		"metronome": {args: "<volume>", help: "set the metronome volume, 0 is off", min: 1, max: 1, run: func(c *Console, ctx context.Context, args []string) error {
			v, err := parseFloat(args[0])
			if err != nil {
				return err
			}
			return c.ok(ctx, c.control.SetMetronomeVolume(float32(v)))
		}},
		"undo": {help: "undo the latest change", run: func(c *Console, ctx context.Context, args []string) error {
			return c.ok(ctx, c.control.Undo())
		}},
		"save": {args: "<file>", help: "save the tracks to a session file", min: 1, max: 1, run: func(c *Console, ctx context.Context, args []string) error {
			if err := c.sync(ctx); err != nil {
				return err
			}
			return c.ok(ctx, control.WriteSession(args[0], c.control.Session()))
		}},
		"load": {args: "<file>", help: "add the tracks of a session file", min: 1, max: 1, run: func(c *Console, ctx context.Context, args []string) error {
			s, err := control.ReadSession(args[0])
			if err != nil {
				return err
			}
			return c.ok(ctx, c.control.Load(s))
		}},
	}
	commands["exit"] = commands["quit"]
}

func (c *Console) setEnabled(ctx context.Context, arg string, enabled bool) error {
	track, err := parseTrack(arg)
	if err != nil {
		return err
	}
	return c.ok(ctx, c.control.SetEnabled(track, enabled))
}

func parseTrack(s string) (bats.TrackID, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, errors.Errorf("invalid track %q", s)
	}
	return bats.TrackID(id), nil
}

func parseInstance(s string) (bats.InstanceID, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, errors.Errorf("invalid instance %q", s)
	}
	return bats.InstanceID(id), nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid number %q", s)
	}
	return v, nil
}
