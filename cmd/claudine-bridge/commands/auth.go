package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/claudine-bridge/internal/app"
	"github.com/florianilch/claudine-bridge/internal/tokenstore"
)

// authCommand returns the 'auth' subcommand for managing the stored upstream key.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the stored upstream API key",
		Commands: []*cli.Command{
			authSetKeyCommand(),
			authClearCommand(),
		},
	}
}

// authSetKeyCommand returns the 'auth set-key' subcommand.
func authSetKeyCommand() *cli.Command {
	return &cli.Command{
		Name:   "set-key",
		Usage:  "Save the upstream API key used when requests carry none",
		Action: authSetKeyAction,
	}
}

// authClearCommand returns the 'auth clear' subcommand.
func authClearCommand() *cli.Command {
	return &cli.Command{
		Name:   "clear",
		Usage:  "Remove the stored upstream API key",
		Action: authClearAction,
	}
}

// writableStore returns the configured store, rejecting storages that cannot be written.
func writableStore(cmd *cli.Command) (tokenstore.Store, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch cfg.Auth.Storage {
	case app.TokenStorageTypeEnv:
		return nil, fmt.Errorf("env storage is read-only; set %s or configure file or keyring storage", cfg.Auth.EnvVar)
	case app.TokenStorageTypeNone:
		return nil, errors.New("no token storage configured; set auth.storage to file or keyring")
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}
	return store, nil
}

// authSetKeyAction reads a key from the terminal (or stdin when piped) and stores it.
func authSetKeyAction(ctx context.Context, cmd *cli.Command) error {
	store, err := writableStore(cmd)
	if err != nil {
		return err
	}

	key, err := readSecureInput(ctx, "Enter upstream API key: ")
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	if err := store.Write(ctx, key); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}

	fmt.Println("API key saved to configured storage")
	return nil
}

// authClearAction removes the stored key.
func authClearAction(ctx context.Context, cmd *cli.Command) error {
	store, err := writableStore(cmd)
	if err != nil {
		return err
	}

	// Clear key via empty string write to maintain storage abstraction
	if err := store.Write(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear key: %w", err)
	}

	fmt.Println("API key cleared from configured storage")
	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
// When stdin is not a terminal, the first line is read instead.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	interactive := term.IsTerminal(fd)
	if interactive {
		fmt.Print(prompt)
		defer fmt.Println()
	}

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		if interactive {
			inputBytes, err := term.ReadPassword(fd)
			resultCh <- result{value: string(inputBytes), err: err}
			return
		}
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		resultCh <- result{value: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
