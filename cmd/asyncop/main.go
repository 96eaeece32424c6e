// Command asyncop calls an HTTP endpoint through a retrying controller
// configured from a YAML file and the environment. It prints the response
// body on success and the resulting notifications on failure.
//
//	asyncop fetch https://api.example.com/bookings/42 --max-retries 3
//	asyncop config --config asyncop.yaml
package main

import (
	"context"
	"io"
	"os"

	"github.com/Aurel1407/Shu-no-sub002/shutdown"
)

func main() {
	ctx, handler := shutdown.SetupHandler(context.Background())

	code := run(ctx, handler, os.Args[1:], os.Stdout, os.Stderr)

	handler.Stop()
	os.Exit(code)
}

func run(ctx context.Context, handler *shutdown.Handler, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(handler)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}

	return 0
}
