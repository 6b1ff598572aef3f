// Command fsmrun loads declarative state machines and runs, feeds, draws or
// lints them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/shutdown"
	"github.com/amp-labs/amp-fsm/telemetry"
)

const flushTimeout = 5 * time.Second

func main() {
	handler := shutdown.NewHandler()
	handler.BeforeShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()

		if err := telemetry.Shutdown(ctx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	})

	ctx, stop := handler.Context(context.Background())

	err := newRootCmd(cli.PromptChooser{}).ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
