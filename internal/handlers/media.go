package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxImageBytes = 10 << 20

// UploadVehicleImage stores a multipart "file" and appends its URL to the
// vehicle's gallery.
func (h HandlerSet) UploadVehicleImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes+1<<20)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	v, err := h.catalog.AddImage(c.Request.Context(), c.Param("id"), file, header.Size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": v, "url": v.Images[len(v.Images)-1]})
}
