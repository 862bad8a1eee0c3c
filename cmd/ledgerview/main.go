package main

import (
	"os"

	"github.com/ledgerview/ledgerview/internal/commands"
)

func main() {
	os.Exit(commands.Execute())
}
