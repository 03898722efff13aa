package main

import (
	"context"

	"pkt.systems/psi"

	"sermonizer/cmd"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	return cmd.Execute(ctx)
}
