package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tunelark/crossfade/internal/platform"
	"github.com/tunelark/crossfade/internal/server"
	"github.com/tunelark/crossfade/internal/shared"
)

// Auth runs the Spotify authorization-code flow against a loopback callback
// server and persists the resulting token.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate("spotify"); err != nil {
		return err
	}

	auth := platform.NewSpotifyAuthenticator(r.config.Credentials.Spotify)
	loopback, err := server.NewLoopback(auth, r.config.Credentials.Spotify.RedirectURI, server.RandomState(), r.logger)
	if err != nil {
		return err
	}

	r.writePlain("Please visit the following URL to authorize:\n\n%s\n\n", loopback.AuthURL())
	r.writePlain("Waiting for authorization...\n")

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(cmd.Int("timeout"))*time.Second)
	defer cancel()

	token, err := loopback.Listen(waitCtx)
	if err != nil {
		return err
	}

	if err := shared.SaveToken(r.tokenPath, token); err != nil {
		return err
	}

	r.logger.Info("authentication successful")
	return r.writePlain("Authorization successful. Token saved to %s\n", r.tokenPath)
}
