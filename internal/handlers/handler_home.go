package handlers

import (
	"net/http"

	"github.com/SscSPs/bank_mesh/internal/platform/config"
	"github.com/gin-gonic/gin"
)

// getHome godoc
// @Summary Show which collections this instance owns.
// @Tags root
// @Accept */*
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func getHome(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":          cfg.ServiceName,
			"ownedCollections": cfg.OwnedCollections,
		})
	}
}
