package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/config"
	"voterlookup/internal/credentials"
	"voterlookup/internal/portal"
	"voterlookup/internal/portal/browser"
	"voterlookup/internal/portal/webforms"
	"voterlookup/internal/voter"
	"voterlookup/lib/restyutil"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

// loadRunConfig reads the config file and applies the command line on top
// of it, apply sets what only one command knows about.
func loadRunConfig(cmd *cobra.Command, names []string, apply func(*config.RunConfig, config.File)) (config.RunConfig, error) {
	file, err := config.Load(root.configPath)
	if err != nil {
		return config.RunConfig{}, err
	}

	cfg := config.New(file)
	cfg.Names = names
	cfg.Filters = voter.Filters{
		Address: root.address,
		City:    root.city,
		Zip:     root.zip,
		Phone:   root.phone,
		VoterID: root.voterID,
	}
	cfg.ExtractDetails = root.extractDetails
	cfg.Debug = root.debug
	if root.browser {
		cfg.Backend = config.BackendBrowser
	}
	if cmd.Flags().Changed("state-dir") {
		cfg.StateDir = root.stateDir
	}

	if apply != nil {
		apply(&cfg, file)
	}

	err = cfg.Validate()
	if err != nil {
		return config.RunConfig{}, err
	}
	return cfg, nil
}

func stateDir(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("state-dir") {
		return root.stateDir, nil
	}
	file, err := config.Load(root.configPath)
	if err != nil {
		return "", err
	}
	if file.StateDir != "" {
		return file.StateDir, nil
	}
	return config.DefaultStateDir(), nil
}

// lockStateDir makes sure only one run uses the state dir at a time.
func lockStateDir(dir string) (*flock.Flock, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dir, "voterlookup.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock state dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another voterlookup run is using %s", dir)
	}
	return lock, nil
}

func newDriver(cfg config.RunConfig, tel telemetry.API) (portal.Driver, error) {
	if cfg.Backend == config.BackendBrowser {
		return browser.New(browser.Options{
			PortalURL:         cfg.PortalURL,
			Headless:          !cfg.Debug,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, tel), nil
	}

	opts := webforms.Options{
		PortalURL:         cfg.PortalURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
	if cfg.Debug {
		output, err := restyutil.NewFilesystemOutput(filepath.Join(cfg.StateDir, "http"))
		if err != nil {
			return nil, err
		}
		opts.Output = output
	}
	return webforms.New(opts, tel)
}

// resolveCredentials asks for the portal credentials on the terminal when
// none are saved.
func resolveCredentials(tel telemetry.API) (portal.Credentials, error) {
	return credentials.NewStore(tel).Resolve(os.Stdin, os.Stderr)
}

func withAuthHint(err error) error {
	if errors.Is(err, voter.ErrAuth) {
		return fmt.Errorf("%w, update them with `voterlookup credentials set`", err)
	}
	return err
}
