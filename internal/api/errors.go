package api

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/middleware"
	"go.uber.org/zap"
)

// bindJSON decodes the request message into dst. An empty body is the
// empty message, so RPCs without fields accept both "" and "{}".
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}
	return nil
}

// fail writes err on the Connect error channel. Internal errors are logged
// with the operation name; the client only sees an opaque message. Denials
// are logged at info so repeated cross-realm probing shows up in the logs.
func fail(c *gin.Context, logger *zap.Logger, op string, err error) {
	switch code, _ := apperr.Classify(err); {
	case code == apperr.CodeInternal:
		logger.Error(op+" failed",
			zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(c)),
		)
	case apperr.IsDenied(err):
		logger.Info(op+" denied",
			zap.String("reason", err.Error()),
			zap.String("request_id", middleware.GetRequestID(c)),
		)
	}
	middleware.AbortWithError(c, err)
}
