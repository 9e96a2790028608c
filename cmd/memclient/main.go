// Command memclient is a command line client for the remote memory store, and a
// reference server for it (`memclient serve`).
//
//	memclient --base-url https://memory.example.com --api-key sk-... --namespace agents put user:42 "prefers dark mode"
//	memclient --config memclient.yaml keys
//	memclient serve --addr :8080 --api-key sk-local
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
