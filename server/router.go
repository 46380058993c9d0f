package server

import (
	"github.com/alist-org/arkit/internal/conf"
	"github.com/alist-org/arkit/internal/stream"
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/alist-org/arkit/server/handles"
	"github.com/alist-org/arkit/server/middlewares"
	"github.com/gin-gonic/gin"
)

func Init(e *gin.Engine, lib *archive.Library) {
	handles.SetLibrary(lib)
	api := e.Group("/api")
	if n := conf.Conf.Scheme.MaxConnections; n > 0 {
		api.Use(middlewares.MaxAllowed(n))
	}
	api.GET("/public/archive_extensions", handles.ArchiveExtensions)

	a := api.Group("/archive")
	a.Any("/meta", handles.ArchiveMeta)
	a.Any("/list", handles.ArchiveList)
	a.GET("/get", middlewares.DownloadRateLimiter(&stream.ServerDownloadLimit), handles.ArchiveGet)
}
