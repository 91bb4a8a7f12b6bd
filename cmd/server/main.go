package main

import (
	"github.com/parallax-labs/graphrag/internal/server"
	"github.com/parallax-labs/graphrag/internal/util"
	"github.com/parallax-labs/graphrag/pkg/logger"
	"github.com/parallax-labs/graphrag/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
