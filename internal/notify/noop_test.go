package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

func TestNoOpNotifier_SendRunSummary(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := n.SendRunSummary(context.Background(), &RunSummary{
		Name:   "test-search",
		Result: domain.RunResult{Saved: 3, StopReason: domain.StopCatalogExhausted},
	})
	require.NoError(t, err)
}

func TestNoOpNotifier_NilLogger(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(nil)
	require.NoError(t, n.SendRunSummary(context.Background(), &RunSummary{}))
}

// compile-time interface checks.
var (
	_ Notifier = (*NoOpNotifier)(nil)
	_ Notifier = (*DiscordNotifier)(nil)
)
