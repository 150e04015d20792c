package main

import (
	"os"
	"strings"

	_ "github.com/gogpu/gg/gpu"

	"TutorBoard/internal/cli"
	tbnet "TutorBoard/internal/net"
)

func main() {
	args := os.Args[1:]
	switch {
	case len(args) == 0:
		args = []string{"host"}
	case len(args) == 1 && strings.HasPrefix(args[0], tbnet.LinkScheme):
		// share links open the app directly as a guest
		args = []string{"join", args[0]}
	}
	if err := cli.Execute(args); err != nil {
		os.Exit(1)
	}
}
