package handler

import "github.com/gin-gonic/gin"

const actorHeader = "X-Actor-ID"

// actorFromContext resolves the acting user from the trusted gateway header.
// Authentication itself happens upstream of this service.
func actorFromContext(c *gin.Context) string {
	return c.GetHeader(actorHeader)
}
