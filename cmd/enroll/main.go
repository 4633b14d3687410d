package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/campbright/enroll/internal/migration"
	"github.com/campbright/enroll/internal/server"
	"github.com/campbright/enroll/pkg/db"
	"github.com/campbright/enroll/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
