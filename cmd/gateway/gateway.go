package main

import (
	"os"

	"domogateway/cmd/gateway/app"
	"k8s.io/component-base/logs"
	_ "k8s.io/component-base/logs/json/register"
)

func main() {
	cmd := app.NewGatewayCmd()
	logs.InitLogs()
	defer logs.FlushLogs()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
