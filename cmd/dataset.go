package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/tunelark/crossfade/internal/dataset"
	"github.com/tunelark/crossfade/internal/match"
	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
)

// DatasetNew registers an empty dataset.
func (r *Runner) DatasetNew(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: dataset name", shared.ErrMissingArgument)
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := store.Create(name); err != nil {
		return err
	}
	return r.writePlain("created dataset %q\n", name)
}

// DatasetLoad verifies a dataset exists and reports its size.
func (r *Runner) DatasetLoad(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: dataset name", shared.ErrMissingArgument)
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ds, err := store.Open(name)
	if err != nil {
		return err
	}
	count, err := ds.Len()
	if err != nil {
		return err
	}
	return r.writePlain("dataset %q holds %d pairs\n", name, count)
}

// DatasetExpand harvests new pairs from two platforms into a dataset.
func (r *Runner) DatasetExpand(ctx context.Context, cmd *cli.Command) error {
	p1Arg := cmd.StringArg("platform1")
	p2Arg := cmd.StringArg("platform2")
	if p1Arg == "" || p2Arg == "" {
		return fmt.Errorf("%w: two platform names", shared.ErrMissingArgument)
	}

	p1, err := platform.Parse(p1Arg)
	if err != nil {
		return err
	}
	p2, err := platform.Parse(p2Arg)
	if err != nil {
		return err
	}
	if p1 == p2 {
		return fmt.Errorf("%w: %s", shared.ErrSamePlatform, p1)
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ds, err := store.Open(cmd.String("dataset"))
	if err != nil {
		return err
	}

	c1, err := r.buildClient(ctx, p1)
	if err != nil {
		return err
	}
	c2, err := r.buildClient(ctx, p2)
	if err != nil {
		return err
	}

	expander := dataset.NewExpander(ds, r.logger, r.output, nil)
	added, err := expander.Expand(ctx, c1, c2, cmd.Int("repeat"))
	if added > 0 {
		r.writePlain("added %d pairs to dataset %q\n", added, ds.Name())
	}
	return err
}

// DatasetGuess fills the ml_guess column from the configured model.
func (r *Runner) DatasetGuess(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ds, err := store.Open(cmd.String("dataset"))
	if err != nil {
		return err
	}

	confidence := r.config.Matcher.Confidence
	if confidence <= 0 {
		confidence = match.DefaultConfidence
	}

	updated, err := ds.FillGuesses(r.scorer(), confidence)
	if err != nil {
		return err
	}
	return r.writePlain("guessed %d pairs in dataset %q\n", updated, ds.Name())
}

// DatasetProcess exports the featurized dataset for model training.
func (r *Runner) DatasetProcess(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ds, err := store.Open(cmd.String("dataset"))
	if err != nil {
		return err
	}

	dir := r.config.Dataset.ProcessedDir
	if err := ds.ExportProcessed(dir, cmd.Bool("override")); err != nil {
		return err
	}
	return r.writePlain("processed dataset written to %s/%s.csv\n", dir, ds.Name())
}

// DatasetExport writes the raw dataset as CSV.
func (r *Runner) DatasetExport(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ds, err := store.Open(cmd.String("dataset"))
	if err != nil {
		return err
	}

	dir := r.config.Dataset.RawDir
	if err := ds.ExportRaw(dir); err != nil {
		return err
	}
	return r.writePlain("raw dataset written to %s/%s.csv\n", dir, ds.Name())
}
