package handles

import (
	"fmt"
	"mime"
	stdpath "path"
	"path/filepath"

	"github.com/alist-org/arkit/internal/conf"
	"github.com/alist-org/arkit/internal/model"
	"github.com/alist-org/arkit/internal/op"
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/alist-org/arkit/pkg/format"
	"github.com/alist-org/arkit/pkg/utils"
	"github.com/alist-org/arkit/server/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var lib *archive.Library

// SetLibrary sets the engine the handlers open archives with.
func SetLibrary(l *archive.Library) {
	lib = l
}

type ArchiveMetaReq struct {
	Path        string `json:"path" form:"path" binding:"required"`
	ArchivePass string `json:"archive_pass" form:"archive_pass"`
}

type ArchiveMetaResp struct {
	model.ArchiveMeta
	Content []model.ArchiveObj `json:"content"`
}

// localPath maps a request path below the served root.
func localPath(p string) string {
	return filepath.Join(conf.Conf.Scheme.Root, filepath.FromSlash(utils.FixAndCleanPath(p)))
}

func openArchive(c *gin.Context, req ArchiveMetaReq) (*archive.Reader, bool) {
	h := archive.NewHandler(archive.WithPassword(req.ArchivePass))
	r, err := lib.OpenReader(h, localPath(req.Path))
	if err != nil {
		code := common.ErrorCode(err)
		common.ErrorResp(c, err, code, code == 500)
		return nil, false
	}
	return r, true
}

func ArchiveMeta(c *gin.Context) {
	var req ArchiveMetaReq
	if err := c.ShouldBind(&req); err != nil {
		common.ErrorResp(c, err, 400)
		return
	}
	r, ok := openArchive(c, req)
	if !ok {
		return
	}
	defer r.Close()
	common.SuccessResp(c, ArchiveMetaResp{
		ArchiveMeta: op.ArchiveMeta(r),
		Content:     op.ArchiveList(r, true),
	})
}

type ArchiveListReq struct {
	ArchiveMetaReq
	model.PageReq
	InnerPath string `json:"inner_path" form:"inner_path"`
}

func ArchiveList(c *gin.Context) {
	var req ArchiveListReq
	if err := c.ShouldBind(&req); err != nil {
		common.ErrorResp(c, err, 400)
		return
	}
	req.Validate()
	r, ok := openArchive(c, req.ArchiveMetaReq)
	if !ok {
		return
	}
	defer r.Close()
	objs, err := op.ArchiveDir(r, req.InnerPath)
	if err != nil {
		common.ErrorResp(c, err, 404)
		return
	}
	total, objs := req.Paginate(objs)
	common.SuccessResp(c, common.PageResp{
		Content: objs,
		Total:   total,
	})
}

type ArchiveGetReq struct {
	ArchiveMetaReq
	InnerPath string `json:"inner_path" form:"inner_path" binding:"required"`
}

// ArchiveGet streams the content of one item.
func ArchiveGet(c *gin.Context) {
	var req ArchiveGetReq
	if err := c.ShouldBind(&req); err != nil {
		common.ErrorResp(c, err, 400)
		return
	}
	r, ok := openArchive(c, req.ArchiveMetaReq)
	if !ok {
		return
	}
	defer r.Close()
	it, err := r.Find(req.InnerPath)
	if err != nil {
		common.ErrorResp(c, err, common.ErrorCode(err))
		return
	}
	if it.IsDir() {
		common.ErrorStrResp(c, "can't get a directory", 400)
		return
	}
	name := stdpath.Base(it.Path())
	contentType := mime.TypeByExtension(stdpath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", fmt.Sprint(it.Size()))
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Status(200)
	if err = r.ExtractTo(c, it.Index(), c.Writer); err != nil {
		log.Warnf("failed to send %s from %s: %+v", req.InnerPath, req.Path, err)
		c.Abort()
	}
}

type FormatResp struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Writable  bool   `json:"writable"`
	Features  string `json:"features,omitempty"`
}

// ArchiveExtensions lists the formats the engine can read.
func ArchiveExtensions(c *gin.Context) {
	ret, _ := utils.SliceConvert(lib.Formats(), func(f *format.InFormat) (FormatResp, error) {
		resp := FormatResp{Name: f.Name, Extension: f.Extension}
		if w, ok := f.Writable(); ok {
			resp.Writable = lib.CanWrite(f)
			resp.Features = w.Features.String()
		}
		return resp, nil
	})
	common.SuccessResp(c, ret)
}
