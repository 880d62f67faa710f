package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	eoflow "github.com/opst/eoflow/pkg"
	configs "github.com/opst/eoflow/pkg/configs/backend"
	"github.com/opst/eoflow/pkg/domain"
	"github.com/opst/eoflow/pkg/logger"
	"github.com/opst/eoflow/pkg/loop/recurring"
	"github.com/opst/eoflow/pkg/utils/args"
	"github.com/opst/eoflow/pkg/utils/filewatch"
	"github.com/opst/eoflow/pkg/utils/try"
)

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	// call cancel() when this function exits
	defer cancel()

	// define command line flags
	//-- path to config file
	pconfig := flag.String(
		"config", os.Getenv("EOFLOW_CONFIG"), "path to config file",
	)
	//-- which loop type to run
	loopType := args.Parser(domain.AsLoopType)
	flag.Var(loopType, "type", "one of loop type (dispatch|monitor|finishing|trigger)")
	//-- loop policy
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as interval.`+
			` "backlog" = run until error or backlog is over.`,
	)
	plevel := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	// parse command line flags
	flag.Parse()

	log := logger.FromEnv(*plevel)

	if !loopType.IsSet() {
		log.Fatal("-type is required")
	}
	if !policy.IsSet() {
		policy.Set("forever:3s")
	}

	{
		// watch config. the process ends when it is changed, to be restarted.
		wctx, cancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			log.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(configs.LoadBackendConfig(*pconfig)).OrFatal(log)
	ef := try.To(eoflow.Attach(ctx, conf, eoflow.DefaultConnectors(), log)).OrFatal(log)
	defer ef.Close()

	log.WithFields(map[string]any{
		"type": loopType.Value().String(), "policy": policy.Value().String(),
	}).Info("start loop")

	err := StartLoop(
		ctx, log, ef,
		LoopManifest{
			Type:   loopType.Value(),
			Policy: recurring.UntilError(policy.Value()),
		},
	)

	if err == nil {
		return
	} else if errors.Is(err, context.Canceled) {
		log.WithError(err).WithField("cause", context.Cause(ctx)).Info("loop context is cancelled")
		return
	}
	log.Fatal(err)
}
