package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mkale/sitewalk/internal/models"
)

func registerRoutes(router *gin.Engine, db *gorm.DB) {
	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/jobs", listJobs(db))
	api.GET("/jobs/:id", getJob(db))
	api.GET("/items/:id/entries", listItemEntries(db))
}

// listJobs returns work orders, optionally filtered by status.
func listJobs(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Order("id")
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		var orders []models.WorkOrder
		if err := q.Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": orders})
	}
}

// getJob returns one work order with its full checklist tree.
func getJob(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
			return
		}

		var wo models.WorkOrder
		err = db.
			Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("sequence, id") }).
			Preload("Items.Locations", func(q *gorm.DB) *gorm.DB { return q.Order("sequence, id") }).
			Preload("Items.Locations.Tasks", func(q *gorm.DB) *gorm.DB { return q.Order("sequence, id") }).
			Preload("Items.Tasks", func(q *gorm.DB) *gorm.DB { return q.Order("sequence, id") }).
			First(&wo, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, wo)
	}
}

// listItemEntries returns the inspection entries recorded for one checklist
// location, media and findings included.
func listItemEntries(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
			return
		}

		var entries []models.ItemEntry
		err = db.
			Preload("Media").
			Preload("Findings").
			Where("item_id = ?", id).
			Order("id").
			Find(&entries).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}
