package httpserver

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/druguse/internal/chart"
	"github.com/tinytelemetry/druguse/internal/model"
)

func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.store.RecordCount()
	if err != nil {
		log.Printf("httpserver: RecordCount: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	body := gin.H{
		"status":       "ok",
		"uptime":       time.Since(s.startTime).String(),
		"record_count": count,
	}

	run, ok, err := s.store.LastImport()
	if err != nil {
		log.Printf("httpserver: LastImport: %v", err)
	} else if ok {
		body["last_import"] = gin.H{
			"source":      run.Source,
			"rows":        run.Rows,
			"imported_at": run.ImportedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, body)
}

func (s *Server) handleAgeChart(c *gin.Context) {
	age := c.Param("age")
	rec, prev, next, err := s.ageDetail(age)
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Error: no data for age " + age})
		return
	}
	if err != nil {
		log.Printf("httpserver: age chart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	series := chart.FromRecordUse(rec)
	c.JSON(http.StatusOK, gin.H{
		"age":    rec.Age,
		"prev":   prev,
		"next":   next,
		"labels": series.Labels,
		"data":   series.Data,
	})
}

func (s *Server) handleDrugChart(c *gin.Context) {
	drug := c.Param("drug")
	metric := model.Metric(c.DefaultQuery("metric", string(model.MetricUse)))

	points, err := s.store.DrugSeries(drug, metric)
	switch {
	case errors.Is(err, model.ErrUnknownDrug):
		c.JSON(http.StatusNotFound, gin.H{"error": "Error: no data for drug " + drug})
		return
	case errors.Is(err, model.ErrUnknownMetric):
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric must be use or frequency"})
		return
	case err != nil:
		log.Printf("httpserver: drug chart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if len(points) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Error: no data for drug " + drug})
		return
	}

	series := chart.FromPoints(points)
	c.JSON(http.StatusOK, gin.H{
		"drug":   drug,
		"metric": metric,
		"labels": series.Labels,
		"data":   series.Data,
	})
}
