package main

import (
	"os"

	"tjbridge/internal/tjctl"
)

func main() { os.Exit(tjctl.Main()) }
