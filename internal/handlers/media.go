package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/middleware"
	"wayfare/api/internal/service"
)

func (h HandlerSet) UploadMedia(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		sendError(c, apperr.BadRequest("missing file field"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		sendError(c, apperr.Wrap(apperr.KindInternal, "open upload", err))
		return
	}
	defer file.Close()

	url, err := h.mediaService.Upload(c.Request.Context(), actor, service.UploadInput{
		Body:        file,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
