package main

import (
	"context"
	"fmt"
	"os"

	"github.com/TechXTT/webui/pkg/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "webui: %v\n", err)
		os.Exit(1)
	}
}
