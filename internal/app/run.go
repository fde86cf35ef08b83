// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires the rover server together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relabs-tech/rover_computer/internal/config"
	"github.com/relabs-tech/rover_computer/internal/hw"
	"github.com/relabs-tech/rover_computer/internal/motion"
	"github.com/relabs-tech/rover_computer/internal/server"
	"github.com/relabs-tech/rover_computer/internal/sysmetrics"
	"github.com/relabs-tech/rover_computer/internal/telemetry"
)

// RunServer starts the rover control server and blocks until SIGINT/SIGTERM.
// With mock set, a simulated board replaces the hardware so the full stack
// runs on a development machine.
func RunServer(mock bool) error {
	log.Println("starting rover control server")
	cfg := config.Get()

	// The PWM and PRU peripherals need root. A mock run only warns.
	if os.Geteuid() != 0 {
		if !mock {
			return fmt.Errorf("hardware access requires root, re-run with sudo")
		}
		log.Println("WARNING: not running as root, fine for mock mode only")
	}

	var board hw.Interface
	if mock {
		log.Println("using mock hardware")
		board = hw.NewMock(cfg.MotorCount, cfg.MaxMotorSpeed, cfg.ServoMinPulse, cfg.ServoMaxPulse)
	} else {
		// Failure to acquire the board is the one fatal startup condition.
		b, err := hw.NewBoard(cfg)
		if err != nil {
			return fmt.Errorf("hardware init: %w", err)
		}
		board = b
	}

	ctrl := motion.NewController(board, cfg)
	metrics := sysmetrics.NewSampler()
	srv := server.New(cfg, board, ctrl, metrics)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctrl.RunWatchdog(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.Run(ctx)
	}()

	if cfg.MQTTBroker != "" {
		bridge, err := telemetry.NewBridge(cfg)
		if err != nil {
			log.Printf("WARNING: telemetry bridge disabled: %v", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer bridge.Close()
				streamer := telemetry.NewStreamer(telemetry.NewBuilder(board, ctrl, metrics, cfg))
				if err := streamer.Run(ctx, bridge.Publish); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("telemetry bridge stopped: %v", err)
				}
			}()
		}
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}
	go func() {
		log.Printf("listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
			cancel()
		}
	}()

	log.Println("server ready")
	<-ctx.Done()

	// Shutdown order: stop accepting clients, stop the background tasks,
	// force the motors to rest, then power the hardware down.
	log.Println("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	wg.Wait()

	ctrl.StopAll()
	board.Close()
	log.Println("cleanup complete")
	return nil
}
