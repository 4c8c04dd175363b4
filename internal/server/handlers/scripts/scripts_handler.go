package scripts

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openmined/scriptsync/internal/server/handlers/api"
	"github.com/openmined/scriptsync/internal/server/scripts"
	"github.com/openmined/scriptsync/internal/utils"
)

const HeaderVersion = "X-Script-Version"

type ScriptsHandler struct {
	index *scripts.ScriptIndex
}

func New(index *scripts.ScriptIndex) *ScriptsHandler {
	return &ScriptsHandler{index: index}
}

// Versions serves the published name -> version document. Versions are sent as decimal strings.
func (h *ScriptsHandler) Versions(ctx *gin.Context) {
	versions, err := h.index.Versions()
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	body := make(map[string]string, len(versions))
	for name, version := range versions {
		body[name] = strconv.FormatInt(version, 10)
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.PureJSON(http.StatusOK, body)
}

// File serves the raw bytes of one published file
func (h *ScriptsHandler) File(ctx *gin.Context) {
	name := strings.TrimPrefix(ctx.Param("filepath"), "/")

	data, version, err := h.index.Open(name)
	if err != nil {
		switch {
		case errors.Is(err, scripts.ErrInvalidName):
			api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		case errors.Is(err, scripts.ErrNotPublished):
			api.AbortWithError(ctx, http.StatusNotFound, api.CodeNotFound, err)
		default:
			api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		}
		return
	}

	ctx.Header(HeaderVersion, strconv.FormatInt(version, 10))
	ctx.Header("Cache-Control", "no-cache")
	ctx.Data(http.StatusOK, utils.DetectContentType(name), data)
}
