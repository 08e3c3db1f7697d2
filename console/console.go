// Package console is a line oriented client of the control facade: it reads
// commands, sends them through a control.Control and prints the state of the
// engine.
package console

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/vsariola/bats"
	"github.com/vsariola/bats/control"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	Console struct {
		control  *control.Control
		out      io.Writer
		template *template.Template

		// Wait is how long a command waits for the engine to apply it, so
		// that errors the engine reports are printed with the command. Zero
		// returns as soon as the command is sent.
		Wait time.Duration
		// Prompt is printed before reading each line.
		Prompt string
	}

	trackView struct {
		bats.TrackInfo
		Plugins []bats.PluginInstanceInfo
	}

	instanceView struct {
		bats.PluginInstanceInfo
		Params []bats.ParamInfo
	}
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

//go:embed templates/*.tmpl
var templateFS embed.FS

func New(c *control.Control, out io.Writer, theme Theme) (*Console, error) {
	s := newStyles(out, theme)
	caser := cases.Title(language.English)
	funcs := sprig.TxtFuncMap()
	funcs["title"] = func(v string) string { return caser.String(v) }
	tmpl, err := template.New("console").Funcs(funcs).Funcs(template.FuncMap{
		"accent":  func(v string) string { return s.accent.Render(v) },
		"label":   func(v string) string { return s.label.Render(v) },
		"dim":     func(v string) string { return s.dim.Render(v) },
		"warn":    func(v string) string { return s.warn.Render(v) },
		"percent": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, errors.Wrapf(err, "parse console templates")
	}
	return &Console{control: c, out: out, template: tmpl, Prompt: "> "}, nil
}

// Run executes the lines of in until it ends, the quit command is read or ctx
// is done. Failing commands print their error and do not stop Run.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		done <- scanner.Err()
	}()
	for {
		fmt.Fprint(c.out, c.Prompt)
		select {
		case line := <-lines:
			if err := c.Exec(ctx, line); err != nil {
				if err == ErrQuit {
					return nil
				}
				c.render("error", err)
			}
		case err := <-done:
			fmt.Fprintln(c.out)
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Exec executes one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	cmd, ok := commands[fields[0]]
	if !ok {
		return errors.Errorf("unknown command %q, try help", fields[0])
	}
	args := fields[1:]
	if len(args) < cmd.min || (cmd.max >= 0 && len(args) > cmd.max) {
		return errors.Errorf("usage: %v %v", fields[0], cmd.args)
	}
	return cmd.run(c, ctx, args)
}

func (c *Console) render(name string, data any) error {
	return c.template.ExecuteTemplate(c.out, name, data)
}

// sync waits for the engine to apply the commands sent so far, if the
// console is configured to wait.
func (c *Console) sync(ctx context.Context) error {
	if c.Wait <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.Wait)
	defer cancel()
	return c.control.Sync(ctx)
}

func (c *Console) ok(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if err := c.sync(ctx); err != nil {
		return err
	}
	return c.render("ok", nil)
}

func (c *Console) created(ctx context.Context, what string) error {
	if err := c.sync(ctx); err != nil {
		return err
	}
	return c.render("created", what)
}

func (c *Console) trackView(info bats.TrackInfo) trackView {
	v := trackView{TrackInfo: info}
	for _, id := range info.PluginInstances {
		if inst, ok := c.control.PluginInstance(id); ok {
			v.Plugins = append(v.Plugins, inst)
		}
	}
	return v
}

func (c *Console) instanceView(info bats.PluginInstanceInfo) instanceView {
	v := instanceView{PluginInstanceInfo: info}
	for _, d := range c.control.Plugins() {
		if d.ID == info.Descriptor {
			v.Params = d.Params
			break
		}
	}
	return v
}
