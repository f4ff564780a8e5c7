package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

// formFile opens a multipart file field, rejecting bodies over maxSize
func formFile(c *gin.Context, field string, maxSize int64) (multipart.File, *multipart.FileHeader, bool) {
	if maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
	}

	file, header, err := c.Request.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required", "details": err.Error()})
		return nil, nil, false
	}
	if maxSize > 0 && header.Size > maxSize {
		file.Close()
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return nil, nil, false
	}
	return file, header, true
}
