package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	eoflow "github.com/opst/eoflow/pkg"
	configs "github.com/opst/eoflow/pkg/configs/backend"
	"github.com/opst/eoflow/pkg/logger"
	"github.com/opst/eoflow/pkg/utils/echoutil"
	"github.com/opst/eoflow/pkg/utils/filewatch"
	"github.com/opst/eoflow/pkg/utils/try"
)

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("EOFLOW_CONFIG"), "path to config file",
	)
	plevel := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	log := logger.FromEnv(*plevel)

	{
		// the server shuts down when the config is changed, to be restarted.
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			log.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadBackendConfig(*pconfig)).OrFatal(log)
	if len(conf.API().SignKey()) == 0 {
		log.Fatal("api.signKey is required to serve APIs")
	}

	ef := try.To(eoflow.Attach(ctx, conf, eoflow.DefaultConnectors(), log)).OrFatal(log)
	defer ef.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = echoutil.ErrorHandler(e, log)
	e.Use(echoutil.LogHandler(log))

	route(e, conf.API().SignKey(), ef.Jobs(), ef.Commander(), ef.Products())
	for _, r := range e.Routes() {
		log.WithField("method", r.Method).WithField("path", r.Path).Debug("registered route")
	}

	context.AfterFunc(ctx, func() {
		log.WithField("cause", context.Cause(ctx)).Info("shutting down")
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			log.WithError(err).Error("error on shutdown")
		}
	})

	addr := fmt.Sprintf(":%d", conf.API().Port())
	log.WithField("addr", addr).Info("start serving")

	var err error
	if cert, key := *pcert, *pkey; cert != "" && key != "" {
		err = e.StartTLS(addr, cert, key)
	} else {
		err = e.Start(addr)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
