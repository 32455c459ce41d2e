package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/joss/ducky/internal/app"
	"github.com/joss/ducky/internal/render"
)

// exitOnError logs err and prints it to stderr, then exits.
func exitOnError(err error) {
	logger.Error("command_failed", zap.Error(err))
	_ = closeLog()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// openApp opens the rule store and services for one command.
func openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, *paths, cfg, logger)
}

func renderer() *render.Renderer {
	return render.New(pretty)
}

// joinArgs rebuilds a query typed as separate shell words.
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
