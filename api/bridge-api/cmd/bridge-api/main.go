// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/voxbridgeai/api/bridge-api/config"
	internal_resampler "github.com/voxbridgeai/api/bridge-api/internal/audio/resampler"
	internal_bridge "github.com/voxbridgeai/api/bridge-api/internal/bridge"
	internal_executor "github.com/voxbridgeai/api/bridge-api/internal/executor"
	internal_registry "github.com/voxbridgeai/api/bridge-api/internal/registry"
	internal_tool "github.com/voxbridgeai/api/bridge-api/internal/tool"
	"github.com/voxbridgeai/api/bridge-api/internal/tool/builtin"
	bridge_routers "github.com/voxbridgeai/api/bridge-api/router"
	"github.com/voxbridgeai/pkg/commons"
	"github.com/voxbridgeai/pkg/utils"
)

const shutdownGrace = 10 * time.Second

func main() {
	host := flag.String("host", "", "listen address, overrides HOST")
	port := flag.Int("port", 0, "listen port, overrides PORT")
	logLevel := flag.String("log-level", "", "log level, overrides LOG_LEVEL")
	flag.Parse()

	vConfig, err := config.InitConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration load failed: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		os.Exit(1)
	}
	if !utils.IsEmpty(*host) {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if !utils.IsEmpty(*logLevel) {
		cfg.LogLevel = *logLevel
	}

	logger, err := commons.NewApplicationLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Errorw("server failed", "error", err)
		logger.Sync()
		os.Exit(2)
	}
}

func run(cfg *config.AppConfig, logger commons.Logger) error {
	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := internal_registry.New(logger)
	defer registry.Close()
	exec := internal_executor.New(logger)
	defer exec.Close()

	tools := internal_tool.NewRegistry()
	for _, tool := range builtin.All() {
		if err := tools.Register(tool); err != nil {
			return fmt.Errorf("registering builtin tool: %w", err)
		}
	}

	resampler := internal_resampler.GetResampler(logger)
	metrics := &internal_bridge.Metrics{}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	bridge_routers.HealthCheckRoutes(cfg, engine, logger, registry, metrics)
	bridge_routers.StreamRoutes(baseCtx, cfg, engine, logger, registry, exec, tools, resampler, metrics)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		// a taken port is a startup failure, not a runtime one
		logger.Errorw("listen failed", "addr", addr, "error", err)
		logger.Sync()
		os.Exit(1)
	}

	server := &http.Server{Handler: engine}
	logger.Infow("bridge listening", "addr", addr, "version", cfg.Version)

	g, gCtx := errgroup.WithContext(baseCtx)
	g.Go(func() error {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutdown requested, draining calls")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
