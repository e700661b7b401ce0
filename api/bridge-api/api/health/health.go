// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package bridge_health_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxbridgeai/api/bridge-api/config"
	internal_bridge "github.com/voxbridgeai/api/bridge-api/internal/bridge"
	internal_registry "github.com/voxbridgeai/api/bridge-api/internal/registry"
	"github.com/voxbridgeai/pkg/commons"
)

type HealthApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	registry *internal_registry.Registry
	metrics  *internal_bridge.Metrics
}

func New(cfg *config.AppConfig, logger commons.Logger, registry *internal_registry.Registry, metrics *internal_bridge.Metrics) *HealthApi {
	return &HealthApi{cfg: cfg, logger: logger, registry: registry, metrics: metrics}
}

// Healthz reports liveness plus the call counters.
func (hApi *HealthApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"name":         hApi.cfg.Name,
		"version":      hApi.cfg.Version,
		"active_calls": hApi.registry.Len(),
		"counters":     hApi.metrics.Snapshot(),
	})
}

// Readiness is liveness with no dependency checks: the AI peer is dialed per
// call, so the server is ready as soon as it listens.
func (hApi *HealthApi) Readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
