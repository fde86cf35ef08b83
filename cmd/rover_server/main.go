// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/rover_computer/internal/app"
	"github.com/relabs-tech/rover_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "rover_config.yaml", "path to the YAML configuration file")
	mock := flag.Bool("mock", false, "run against simulated hardware")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunServer(*mock); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
