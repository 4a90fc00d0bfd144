// Command gemplexd runs the Gemini server: it reads
// server_settings.json from the current directory, builds the URL
// tree it describes, and serves it until the process is killed.
package main

import (
	"crypto/tls"
	"fmt"
	"os"

	"go.uber.org/zap"

	"git.sr.ht/~pebble/gemplex"
	"git.sr.ht/~pebble/gemplex/internal/gemlog"
	"git.sr.ht/~pebble/gemplex/internal/pkcs12id"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gemplexd:", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := gemini.LoadSettings("server_settings.json")
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger, err := gemlog.New("log.txt", settings.Log)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logger.Sync()

	tree, err := gemini.BuildTree(settings, logger)
	if err != nil {
		return fmt.Errorf("build url tree: %w", err)
	}

	identity, err := pkcs12id.Load(settings.TLSProfile, settings.ProfilePassword)
	if err != nil {
		if !settings.NeverExit {
			return fmt.Errorf("load tls identity: %w", err)
		}
		// NeverExit says to warn rather than abort here. With an empty
		// identity the listeners still bind, but every TLS handshake
		// fails and those connections are closed without a response.
		logger.Warn("load tls identity failed, continuing in a diminished state", zap.Error(err))
		identity = tls.Certificate{}
	}

	server := gemini.NewServer(tree, identity, logger)
	logger.Info("starting server")
	return server.ListenAndServe()
}
