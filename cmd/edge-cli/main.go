package main

import (
	"context"

	"edgestats-backend/cmd/edge-cli/commands"
	"edgestats-backend/lib/serviceutil"
	"edgestats-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "edge-cli")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	err = commands.ExecuteContext(ctx)
	shutdownErr := t.Shutdown(context.Background())
	if err != nil {
		serviceutil.Fatal("command failed", err)
	}
	if shutdownErr != nil {
		serviceutil.Fatal("failed to flush telemetry", shutdownErr)
	}
}
