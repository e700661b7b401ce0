// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package bridge_routers

import (
	"context"

	"github.com/gin-gonic/gin"

	healthApi "github.com/voxbridgeai/api/bridge-api/api/health"
	streamApi "github.com/voxbridgeai/api/bridge-api/api/stream"
	"github.com/voxbridgeai/api/bridge-api/config"
	internal_bridge "github.com/voxbridgeai/api/bridge-api/internal/bridge"
	internal_executor "github.com/voxbridgeai/api/bridge-api/internal/executor"
	internal_registry "github.com/voxbridgeai/api/bridge-api/internal/registry"
	internal_tool "github.com/voxbridgeai/api/bridge-api/internal/tool"
	internal_type "github.com/voxbridgeai/api/bridge-api/internal/type"
	"github.com/voxbridgeai/pkg/commons"
)

func StreamRoutes(
	baseCtx context.Context,
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	registry *internal_registry.Registry,
	exec *internal_executor.Executor,
	tools *internal_tool.Registry,
	resampler internal_type.AudioResampler,
	metrics *internal_bridge.Metrics,
) *streamApi.StreamApi {
	logger.Info("Stream routes added to engine.")
	sApi := streamApi.New(baseCtx, cfg, logger, registry, exec, tools, resampler, metrics)
	apiv1 := engine.Group("/v1")
	{
		apiv1.GET("/stream/:dialect", sApi.Connect)
	}
	return sApi
}

func HealthCheckRoutes(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	registry *internal_registry.Registry,
	metrics *internal_bridge.Metrics,
) {
	logger.Info("HealthCheck routes added to engine.")
	hApi := healthApi.New(cfg, logger, registry, metrics)
	root := engine.Group("")
	{
		root.GET("/healthz", hApi.Healthz)
		root.GET("/readiness", hApi.Readiness)
	}
}
