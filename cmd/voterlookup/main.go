package main

import (
	"voterlookup/cmd/voterlookup/commands"
	"voterlookup/lib/serviceutil"
)

func main() {
	ctx, stop := serviceutil.SignalContext()
	defer stop()
	commands.ExecuteContext(ctx)
}
