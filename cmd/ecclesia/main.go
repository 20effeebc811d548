package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ecclesia/internal/clock"
	"github.com/smallbiznis/ecclesia/internal/config"
	"github.com/smallbiznis/ecclesia/internal/migration"
	"github.com/smallbiznis/ecclesia/internal/observability"
	"github.com/smallbiznis/ecclesia/internal/scheduler"
	"github.com/smallbiznis/ecclesia/internal/server"
	"github.com/smallbiznis/ecclesia/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// server.Module pulls in the domain modules and the redis client.
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the id node used for audit and ledger rows.
func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
