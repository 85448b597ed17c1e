package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(exitCode(newRootCmd().ExecuteContext(context.Background())))
}
