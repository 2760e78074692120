// Command nlsstream streams microphone audio to the Aliyun NLS gateway and
// prints recognition results as they arrive.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/nlsstream/internal/app"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run cancels the listener on SIGINT or SIGTERM so the pipeline can tear down
// in order before the process exits.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Execute(ctx, args, stdout, stderr)
}
