package httpserver

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs one line per request once the handler has finished.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("httpserver: %s %s %d %s", c.Request.Method, c.Request.URL.RequestURI(), c.Writer.Status(), time.Since(start))
	}
}
