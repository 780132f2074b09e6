package main

import (
	"context"
	"fmt"
	"os"

	"jobfeed/internal/commands"
)

func main() {
	if err := commands.Execute(context.Background(), nil); err != nil {
		fmt.Fprint(os.Stderr, commands.FormatError(err))
		os.Exit(1)
	}
}
