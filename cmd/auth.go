package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/ytsync/internal/server"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthYouTube runs the Google OAuth2 consent flow and saves the refresh token to the config file.
func (r *Runner) AuthYouTube(ctx context.Context, cmd *cli.Command) error {
	yt := r.config.Credentials.YouTube
	if yt.ClientID == "" || yt.ClientSecret == "" {
		return fmt.Errorf("%w: set credentials.youtube.client_id and client_secret in %s", shared.ErrMissingCredentials, r.configPath)
	}

	token, err := r.authorize(ctx, services.NewGoogleOAuthConfig(yt), server.AuthorizeOpts{
		Timeout: cmd.Duration("timeout"),
		Logger:  r.logger,
		Out:     r.output,
	})
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token returned; revoke ytsync's access in your Google account and retry", shared.ErrAuthFailed)
	}

	// Env overrides live in r.config only; the file keeps what it had plus the new token.
	onDisk, err := r.fileConfig()
	if err != nil {
		return err
	}
	onDisk.Credentials.YouTube.RefreshToken = token.RefreshToken
	if err := shared.SaveConfig(r.configPath, onDisk); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	r.config.Credentials.YouTube.RefreshToken = token.RefreshToken
	r.youtube = nil

	r.logger.Info("youtube authorization saved", "path", r.configPath)
	return r.writePlain("✓ Authorized. Refresh token saved to %s\n", r.configPath)
}

// fileConfig reads the config file as written, without env overrides. A missing file yields defaults.
func (r *Runner) fileConfig() (*shared.Config, error) {
	config, err := shared.LoadConfig(r.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return shared.DefaultConfig(), nil
	}
	return config, err
}

// AuthStatus reports which YouTube credentials are configured.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	yt := r.config.Credentials.YouTube

	r.writePlainHeader("YouTube Data API")
	switch {
	case yt.HasOAuth():
		r.writePlain("Authentication: ✓ OAuth2 (refresh token)\n")
	case yt.APIKey != "":
		r.writePlain("Authentication: ✓ API key\n")
	case yt.ClientID != "":
		r.writePlain("Authentication: ✗ OAuth2 client configured, run `ytsync auth youtube`\n")
	default:
		r.writePlain("Authentication: ✗ Not configured\n")
	}
	if yt.BaseURL != "" {
		r.writePlain("Base URL: %s\n", yt.BaseURL)
	}
	return nil
}
