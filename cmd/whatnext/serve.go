package main

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/nugget/whatnext/internal/buildinfo"
	"github.com/nugget/whatnext/internal/web"
)

// runServe starts the browser chat server and blocks until ctx is
// cancelled. Each websocket connection gets its own agent and tool
// provider, released when the connection closes.
func runServe(ctx context.Context, stderr io.Writer, opts options) error {
	cfg, logger, err := configuredLogger(stderr, opts)
	if err != nil {
		return err
	}
	logger.Info("starting whatnext", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	st, err := newStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	factory := func() (web.Session, error) {
		a, err := st.newAgent()
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	server := web.NewServer(cfg.Listen.Addr(), factory, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return nil
	})

	return g.Wait()
}
