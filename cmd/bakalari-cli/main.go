package main

import (
	"context"

	"bakalari-backend/cmd/bakalari-cli/commands"
	"bakalari-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "bakalari-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
