package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskman/internal/app"
	"github.com/colonyops/taskman/internal/core/config"
)

func newTestApp(t *testing.T, backend config.Backend) (*Flags, *app.App) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Backend = backend
	cfg.DataDir = t.TempDir()
	icons := false
	cfg.Display.Icons = &icons

	a, err := app.Open(context.Background(), &cfg, app.Options{}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return &Flags{Config: &cfg, DataDir: cfg.DataDir}, a
}

// runCLI runs args against the command tree with captured output and stdin.
func runCLI(t *testing.T, flags *Flags, a *app.App, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRoot(flags, a, "test")
	root.Reader = strings.NewReader(stdin)
	root.Writer = &out
	root.ErrWriter = &out

	err := root.Run(context.Background(), append([]string{"taskman"}, args...))
	return out.String(), err
}
