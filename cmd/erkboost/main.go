// Command erkboost runs the ERK response-time analyses: gradient boosting
// with permutation importance, hyperparameter search and significance
// testing of the stored importance vectors.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/erkboost/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("erkboost failed", log.ErrAttr(err))
		stop()
		os.Exit(1)
	}
}
