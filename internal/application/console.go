package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/subjects/internal/apperrors"
	"github.com/JonMunkholm/subjects/internal/subject"
)

/* ----------------------------------------
	COMMAND TABLE
---------------------------------------- */

// errExit ends the console loop.
var errExit = errors.New("exit")

// Command is one console command.
type Command struct {
	Name    string
	Aliases []string
	Help    string
	Run     func(c *Console, ctx context.Context) error
}

func buildCommands() []Command {
	return []Command{
		{Name: "help", Help: "this manual", Run: (*Console).help},
		{Name: "exit", Aliases: []string{"quit"}, Help: "close program", Run: func(*Console, context.Context) error {
			return errExit
		}},
		{Name: "new", Help: "add new subject", Run: (*Console).newSubject},
		{Name: "show", Help: "show subjects", Run: (*Console).show},
		{Name: "save", Help: "save subjects to csv", Run: func(c *Console, ctx context.Context) error {
			return c.save(ctx, false)
		}},
		{Name: "save-sort", Aliases: []string{"save sort"}, Help: "sort subjects and save them to csv", Run: func(c *Console, ctx context.Context) error {
			return c.save(ctx, true)
		}},
	}
}

/* ----------------------------------------
	CONSOLE LOOP
---------------------------------------- */

// Console is the line-oriented operator interface.
type Console struct {
	app      *App
	in       *bufio.Scanner
	out      io.Writer
	commands []Command

	lines <-chan string
	inErr error // set before lines is closed
}

// NewConsole creates a console reading commands from in and writing to out.
func NewConsole(app *App, in io.Reader, out io.Writer) *Console {
	return &Console{
		app:      app,
		in:       bufio.NewScanner(in),
		out:      out,
		commands: buildCommands(),
	}
}

// Run reads commands until exit, end of input or ctx is done. Command
// failures are printed and the loop continues.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.lines = c.readLines(ctx)

	c.printf("Type 'help' for help or enter some command:\n")

	for {
		line, ok := c.prompt(ctx, ">> ")
		if !ok {
			if ctx.Err() != nil {
				c.printf("\n")
				return nil
			}
			return c.inErr
		}

		name := normalizeCommand(line)
		if name == "" {
			continue
		}

		cmd, found := c.lookup(name)
		if !found {
			c.printf("Unknown command %q. Type 'help' for the list of commands.\n", line)
			continue
		}

		err := cmd.Run(c, ctx)
		if errors.Is(err, errExit) {
			c.printf("Exit\n")
			return nil
		}
		if err != nil {
			c.printf("Error: %s\n", apperrors.FormatUserError(err))
		}
	}
}

// normalizeCommand trims the line, drops a leading '/' and folds inner
// whitespace so that "/save  sort" resolves like "save sort".
func normalizeCommand(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "/")
	return strings.ToLower(strings.Join(strings.Fields(line), " "))
}

func (c *Console) lookup(name string) (Command, bool) {
	for _, cmd := range c.commands {
		if cmd.Name == name {
			return cmd, true
		}
		for _, alias := range cmd.Aliases {
			if alias == name {
				return cmd, true
			}
		}
	}
	return Command{}, false
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// readLines scans the input on its own goroutine so that a prompt can be
// abandoned when ctx is done. A blocked read of the underlying reader cannot
// be interrupted; the goroutine ends with the next line or end of input.
func (c *Console) readLines(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for c.in.Scan() {
			select {
			case lines <- strings.TrimSuffix(c.in.Text(), "\r"):
			case <-ctx.Done():
				return
			}
		}
		c.inErr = c.in.Err()
	}()
	return lines
}

// prompt prints label and waits for one line. ok is false at end of input or
// when ctx is done.
func (c *Console) prompt(ctx context.Context, label string) (string, bool) {
	c.printf("%s", label)
	select {
	case line, ok := <-c.lines:
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

/* ----------------------------------------
	COMMANDS
---------------------------------------- */

func (c *Console) help(context.Context) error {
	for _, cmd := range c.commands {
		c.printf("%-10s - %s\n", cmd.Name, cmd.Help)
	}
	c.printf("Commands may be prefixed with '/'.\n")
	return nil
}

func (c *Console) newSubject(ctx context.Context) error {
	var in subject.Input
	fields := []struct {
		label string
		dst   *string
	}{
		{"enter name: ", &in.Name},
		{"enter surname: ", &in.Surname},
		{"enter patronymic: ", &in.Patronymic},
		{"enter passport serial and number (without spaces): ", &in.PassportNumber},
		{"enter birth day (dd.mm.yyyy): ", &in.Birthday},
	}

	for _, f := range fields {
		v, ok := c.prompt(ctx, f.label)
		if !ok {
			return errExit
		}
		*f.dst = v
	}

	s, err := c.app.AddSubject(ctx, in)
	if err != nil {
		c.printReasons(err)
		return err
	}
	c.printf("Added: %s\n", s)
	return nil
}

// printReasons lists every validation reason before the summary line.
func (c *Console) printReasons(err error) {
	var verr *subject.ValidationError
	if !errors.As(err, &verr) {
		return
	}
	for _, r := range verr.Reasons() {
		c.printf("  - %s\n", r)
	}
}

func (c *Console) show(context.Context) error {
	subjects := c.app.Subjects()
	if len(subjects) == 0 {
		c.printf("No subjects.\n")
		return nil
	}
	for i, s := range subjects {
		c.printf("%d. %s\n", i+1, s)
	}
	return nil
}

func (c *Console) save(ctx context.Context, sorted bool) error {
	path, ok := c.prompt(ctx, fmt.Sprintf("Enter filename [%s]: ", c.app.ExportPath()))
	if !ok {
		return errExit
	}

	res, err := c.app.Export(ctx, strings.TrimSpace(path), sorted)
	if err != nil {
		return err
	}
	c.printf("Saved %d subjects to %s\n", res.Count, res.Path)
	return nil
}
