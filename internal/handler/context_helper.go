package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cbcs-registration/internal/middleware"
	"github.com/noah-isme/cbcs-registration/internal/service"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

func sessionFromContext(c *gin.Context) *session.Session {
	return middleware.CurrentSession(c)
}

// intParam reads a positive integer path parameter.
func intParam(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
	}
	return id, nil
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
