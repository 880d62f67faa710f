package echoutil

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// LogHandler logs each request and its response.
func LogHandler(logger logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			begin := time.Now()
			l := logger.WithFields(logrus.Fields{
				"method": req.Method,
				"path":   req.URL.Path,
			})
			l.Debug("< request")

			err := next(c)

			l = l.WithFields(logrus.Fields{
				"status": c.Response().Status,
				"takes":  time.Since(begin).String(),
			})
			if err != nil {
				l.WithError(err).Warn("> response")
			} else {
				l.Info("> response")
			}
			return err
		}
	}
}

// ErrorHandler responds errors in echo's default manner, and logs them.
//
// Internal errors of *echo.HTTPError are logged but not responded.
func ErrorHandler(e *echo.Echo, logger logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)

		l := logger.WithField("path", c.Request().URL.Path)
		if he, ok := err.(*echo.HTTPError); ok {
			if he.Internal != nil {
				l = l.WithField("cause", he.Internal.Error())
			}
			if he.Code < 500 {
				l.WithError(err).Debug("request is rejected")
				return
			}
		}
		l.WithError(err).Error("request failed")
	}
}
