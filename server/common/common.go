package common

import (
	"os"

	"github.com/alist-org/arkit/cmd/flags"
	"github.com/alist-org/arkit/pkg/errs"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Resp[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type PageResp struct {
	Content any   `json:"content"`
	Total   int64 `json:"total"`
}

// ErrorCode picks the response code for an archive error.
func ErrorCode(err error) int {
	if errors.Is(err, os.ErrNotExist) {
		return 404
	}
	switch errs.KindOf(err) {
	case errs.KindInvalidIndex, errs.KindIsDirectory:
		return 404
	case errs.KindWrongPassword:
		return 403
	case errs.KindUnsupportedFormat, errs.KindInvalidArchiveHeader:
		return 415
	case errs.KindUnsafeArchivePath, errs.KindUnsupportedOperation, errs.KindMultiVolumeIncomplete:
		return 400
	}
	return 500
}

// ErrorResp is used to return error response
// @param l: if true, log error
func ErrorResp(c *gin.Context, err error, code int, l ...bool) {
	ErrorWithDataResp(c, err, code, nil, l...)
}

func ErrorWithDataResp(c *gin.Context, err error, code int, data interface{}, l ...bool) {
	if len(l) > 0 && l[0] {
		if flags.Debug {
			log.Errorf("%+v", err)
		} else {
			log.Errorf("%v", err)
		}
	}
	c.JSON(200, Resp[interface{}]{
		Code:    code,
		Message: err.Error(),
		Data:    data,
	})
	c.Abort()
}

func ErrorStrResp(c *gin.Context, str string, code int, l ...bool) {
	if len(l) != 0 && l[0] {
		log.Error(str)
	}
	c.JSON(200, Resp[interface{}]{
		Code:    code,
		Message: str,
		Data:    nil,
	})
	c.Abort()
}

func SuccessResp(c *gin.Context, data ...interface{}) {
	if len(data) == 0 {
		c.JSON(200, Resp[interface{}]{
			Code:    200,
			Message: "success",
			Data:    nil,
		})
		return
	}
	c.JSON(200, Resp[interface{}]{
		Code:    200,
		Message: "success",
		Data:    data[0],
	})
}
