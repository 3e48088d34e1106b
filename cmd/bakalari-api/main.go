package main

import (
	"context"

	"bakalari-backend/lib/configutil"
	"bakalari-backend/lib/serviceutil"
	"bakalari-backend/lib/sqliteutil"
	"bakalari-backend/lib/telemetry"
	"bakalari-backend/services/snapshots"
	snapshotsdb "bakalari-backend/services/snapshots/db"
)

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8445
	}
	if config.Database.File == "" {
		config.Database.File = "snapshots.db"
	}

	t, err := telemetry.Setup(ctx, "bakalari-api", config.Telemetry)
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	db, err := sqliteutil.OpenDB(snapshotsdb.Schema, config.Database.File)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	defer db.Close()

	service := NewService(config, snapshots.NewService(db))
	go serviceutil.StartHttpServer(config.Port, service.Router())

	<-ctx.Done()
}
