package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CalculateScorePath is served to any origin; everything else only to the
// configured ones.
const CalculateScorePath = "/api/calculate-score"

var (
	corsMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Authorization", "Content-Type", "X-Requested-With", "apikey", "x-client-info"}
)

// CORS applies the credentialed policy for origins, and the open policy on
// CalculateScorePath. It runs before routing so preflights of every path
// are answered.
func CORS(origins []string) gin.HandlerFunc {
	strict := cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		AllowCredentials: true,
	})
	open := PermissiveCORS()

	return func(c *gin.Context) {
		if c.Request.URL.Path == CalculateScorePath {
			open(c)
			return
		}
		strict(c)
	}
}

// PermissiveCORS allows every origin without credentials.
func PermissiveCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"POST", "OPTIONS"},
		AllowHeaders:    corsHeaders,
	})
}
