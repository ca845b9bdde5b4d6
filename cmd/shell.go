package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/tunelark/crossfade/internal/dataset"
	"github.com/tunelark/crossfade/internal/engine"
	"github.com/tunelark/crossfade/internal/match"
	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
	"github.com/tunelark/crossfade/internal/ui"
)

const shellHelp = `COMMANDS:
    help - print this help text.

    exit - end the program.

    sync <playlist name> [platform 1] [platform 2] - synchronize a playlist
        across two platforms, or all of them if none are specified.
        platforms: spotify | amazon | youtube

    data <action> - modify datasets.
        actions:
            new <dataset name> - create an empty dataset.
            load <dataset name> - select a dataset for the commands below.
            expand <platform 1> <platform 2> [repeat] - grow the loaded
                dataset by cross-searching the two platforms.
            guess - fill the loaded dataset's ml_guess column from the model.
            process [true|false] - export the featurized dataset; pass true
                to rewrite the processed file from scratch.`

// Shell launches the interactive prompt.
func (r *Runner) Shell(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file so they don't interleave with the prompt.
	fileLogger, err := shared.NewFileLogger("./tmp/crossfade-shell.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	d := &dispatcher{runner: r, ctx: ctx}
	p := tea.NewProgram(ui.NewModel(d.Dispatch))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running shell: %w", err)
	}
	return nil
}

// dispatcher executes shell command lines against the Runner's dependencies.
// It carries the shell's only piece of state: the currently loaded dataset.
type dispatcher struct {
	runner  *Runner
	ctx     context.Context
	dataset string
}

// Dispatch parses and runs one command line, returning the result code and
// the transcript text the shell should display.
func (d *dispatcher) Dispatch(line string) (engine.Outcome, string) {
	var buf bytes.Buffer
	sub := *d.runner
	sub.output = &buf

	outcome := d.run(&sub, strings.Fields(line))
	return outcome, buf.String()
}

func (d *dispatcher) run(r *Runner, args []string) engine.Outcome {
	if len(args) == 0 {
		return engine.NoInput
	}

	switch strings.ToLower(args[0]) {
	case "help":
		r.writePlain("%s\n", shellHelp)
		return engine.Success
	case "sync":
		return d.runSync(r, args[1:])
	case "data":
		return d.runData(r, args[1:])
	default:
		r.writePlain("command not found: %s\n", args[0])
		return engine.NoCommand
	}
}

func (d *dispatcher) runSync(r *Runner, args []string) engine.Outcome {
	if len(args) < 1 {
		r.writePlain("Missing required argument <playlist name>\n")
		return engine.MissingArgument
	}
	playlist := args[0]

	p1, p2 := "", ""
	if len(args) >= 3 {
		p1, p2 = args[1], args[2]
	} else if len(args) == 2 {
		r.writePlain("sync takes either one platform pair or none\n")
		return engine.NoValidInput
	}

	outcome, err := r.runSync(d.ctx, playlist, p1, p2)
	if err != nil {
		r.writePlain("%v\n", err)
		return outcome
	}
	r.reportSync(outcome, playlist)
	if outcome == engine.NoPlaylistFound {
		return engine.NoValidInput
	}
	return outcome
}

func (d *dispatcher) runData(r *Runner, args []string) engine.Outcome {
	if len(args) < 1 {
		r.writePlain("Missing action parameter.\ndata <action>\nOptions: 'new' 'load' 'expand' 'guess' 'process'\n")
		return engine.MissingArgument
	}

	switch strings.ToLower(args[0]) {
	case "new":
		return d.runDataNew(r, args[1:])
	case "load":
		return d.runDataLoad(r, args[1:])
	case "expand":
		return d.runDataExpand(r, args[1:])
	case "guess":
		return d.runDataGuess(r)
	case "process":
		return d.runDataProcess(r, args[1:])
	default:
		r.writePlain("command not found: %s\n", args[0])
		return engine.NoCommand
	}
}

func (d *dispatcher) runDataNew(r *Runner, args []string) engine.Outcome {
	if len(args) < 1 {
		r.writePlain("Missing required argument <dataset name>\ndata new <dataset name>\n")
		return engine.MissingArgument
	}

	db, store, err := r.openStore()
	if err != nil {
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	defer db.Close()

	if _, err := store.Create(args[0]); err != nil {
		if errors.Is(err, shared.ErrDatasetExists) {
			r.writePlain("Dataset %q already exists\n", args[0])
			return engine.NoValidInput
		}
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	r.writePlain("created dataset %q\n", args[0])
	return engine.Success
}

func (d *dispatcher) runDataLoad(r *Runner, args []string) engine.Outcome {
	if len(args) < 1 {
		r.writePlain("Missing required argument <dataset name>\ndata load <dataset name>\n")
		return engine.MissingArgument
	}

	db, store, err := r.openStore()
	if err != nil {
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	defer db.Close()

	if _, err := store.Open(args[0]); err != nil {
		r.writePlain("No dataset with name %q\n", args[0])
		return engine.NoValidInput
	}
	d.dataset = args[0]
	r.writePlain("loaded dataset %q\n", args[0])
	return engine.Success
}

// loaded opens the shell's current dataset, reporting NotLoaded when none is.
func (d *dispatcher) loaded(r *Runner, store *dataset.Store) (*dataset.Dataset, engine.Outcome) {
	if d.dataset == "" {
		r.writePlain("No dataset loaded. Use: data load <dataset name>\n")
		return nil, engine.NotLoaded
	}
	ds, err := store.Open(d.dataset)
	if err != nil {
		r.writePlain("No dataset with name %q\n", d.dataset)
		return nil, engine.NotLoaded
	}
	return ds, engine.Success
}

func (d *dispatcher) runDataExpand(r *Runner, args []string) engine.Outcome {
	if len(args) < 2 {
		r.writePlain("Missing required arguments\ndata expand <platform 1> <platform 2> [repeat]\n")
		return engine.MissingArgument
	}

	p1, err := platform.Parse(args[0])
	if err != nil {
		r.writePlain("platform 1 has to be one of %v\n", platform.All)
		return engine.NoValidInput
	}
	p2, err := platform.Parse(args[1])
	if err != nil {
		r.writePlain("platform 2 has to be one of %v\n", platform.All)
		return engine.NoValidInput
	}
	if p1 == p2 {
		r.writePlain("platform 1 and platform 2 can't be the same\n")
		return engine.NoValidInput
	}

	repeat := 1
	if len(args) > 2 {
		repeat, err = strconv.Atoi(args[2])
		if err != nil {
			r.writePlain("Argument <repeat> has to be an integer\n")
			return engine.NoValidInput
		}
	}

	db, store, err := r.openStore()
	if err != nil {
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	defer db.Close()

	ds, outcome := d.loaded(r, store)
	if outcome != engine.Success {
		return outcome
	}

	c1, err := r.buildClient(d.ctx, p1)
	if err != nil {
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	c2, err := r.buildClient(d.ctx, p2)
	if err != nil {
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}

	expander := dataset.NewExpander(ds, r.logger, r.output, nil)
	added, err := expander.Expand(d.ctx, c1, c2, repeat)
	if added > 0 {
		r.writePlain("added %d pairs to dataset %q\n", added, ds.Name())
	}
	if err != nil {
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	return engine.Success
}

func (d *dispatcher) runDataGuess(r *Runner) engine.Outcome {
	db, store, err := r.openStore()
	if err != nil {
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	defer db.Close()

	ds, outcome := d.loaded(r, store)
	if outcome != engine.Success {
		return outcome
	}

	confidence := r.config.Matcher.Confidence
	if confidence <= 0 {
		confidence = match.DefaultConfidence
	}

	updated, err := ds.FillGuesses(r.scorer(), confidence)
	if err != nil {
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	r.writePlain("guessed %d pairs in dataset %q\n", updated, ds.Name())
	return engine.Success
}

func (d *dispatcher) runDataProcess(r *Runner, args []string) engine.Outcome {
	override := false
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "true":
			override = true
		case "false":
			override = false
		default:
			r.writePlain("Argument <override> takes only true | false\n")
			return engine.NoValidInput
		}
	}

	db, store, err := r.openStore()
	if err != nil {
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	defer db.Close()

	ds, outcome := d.loaded(r, store)
	if outcome != engine.Success {
		return outcome
	}

	if err := ds.ExportProcessed(r.config.Dataset.ProcessedDir, override); err != nil {
		if errors.Is(err, shared.ErrUnlabeledRows) {
			r.writePlain("Dataset %q still has unlabeled rows; fill the 'same' column first\n", ds.Name())
			return engine.NoValidInput
		}
		r.writePlain("%v\n", err)
		return engine.NoValidInput
	}
	r.writePlain("processed dataset written to %s/%s.csv\n", r.config.Dataset.ProcessedDir, ds.Name())
	return engine.Success
}
