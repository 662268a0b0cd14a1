package main

import (
	"github.com/casegraph/backend/internal/server"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
