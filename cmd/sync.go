package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/tunelark/crossfade/internal/engine"
	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/shared"
)

// Sync reconciles one playlist between the two named platforms, or across
// all of them when no platforms are given.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	playlist := cmd.StringArg("playlist")
	if playlist == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	p1Arg := cmd.StringArg("platform1")
	p2Arg := cmd.StringArg("platform2")
	if (p1Arg == "") != (p2Arg == "") {
		return fmt.Errorf("%w: either both platforms or none", shared.ErrMissingArgument)
	}

	outcome, err := r.runSync(ctx, playlist, p1Arg, p2Arg)
	if err != nil {
		return err
	}
	return r.reportSync(outcome, playlist)
}

// runSync resolves platform arguments and runs the matching engine pass.
func (r *Runner) runSync(ctx context.Context, playlist, p1Arg, p2Arg string) (engine.Outcome, error) {
	if p1Arg == "" {
		eng, err := r.buildEngine(ctx, platform.All)
		if err != nil {
			return engine.NoValidInput, err
		}
		return eng.SyncAll(ctx, playlist)
	}

	p1, err := platform.Parse(p1Arg)
	if err != nil {
		return engine.NoValidInput, err
	}
	p2, err := platform.Parse(p2Arg)
	if err != nil {
		return engine.NoValidInput, err
	}
	if p1 == p2 {
		return engine.NoValidInput, fmt.Errorf("%w: %s", shared.ErrSamePlatform, p1)
	}

	eng, err := r.buildEngine(ctx, []platform.Platform{p1, p2})
	if err != nil {
		return engine.NoValidInput, err
	}
	return eng.SyncPair(ctx, p1, p2, playlist)
}

// reportSync renders the pass outcome for the user.
func (r *Runner) reportSync(outcome engine.Outcome, playlist string) error {
	switch outcome {
	case engine.Success:
		return r.writePlain("sync complete for %q\n", playlist)
	case engine.NoPlaylistFound:
		return r.writePlain("Playlist %q has to exist on all involved platforms\n", playlist)
	default:
		return r.writePlain("sync finished with result: %s\n", outcome)
	}
}
