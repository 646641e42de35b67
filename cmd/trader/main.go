// Command trader evaluates Fibonacci pivot trade plans and backtests them.
package main

import (
	"context"
	"fmt"
	"os"

	"pivot-trader/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
