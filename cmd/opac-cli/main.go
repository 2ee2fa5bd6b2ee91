package main

import (
	"context"

	"grazopac-backend/cmd/opac-cli/commands"
	"grazopac-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "opac-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
