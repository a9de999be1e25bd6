package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/templeparties/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects bodies over maxBytes. Requests that declare an
// oversized Content-Length fail fast with 413; chunked uploads are capped
// mid-read by MaxBytesReader.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse("REQUEST_TOO_LARGE", "Request body exceeds maximum allowed size"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
