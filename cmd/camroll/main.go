// camroll serves a photo library over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/camroll/pkg/bridge"
	"github.com/tstromberg/camroll/pkg/camroll"
	"github.com/tstromberg/camroll/pkg/index"
	"github.com/tstromberg/camroll/pkg/setup"
)

var (
	configPath = flag.String("config", "", "Location of TOML config file")
	libDir     = flag.String("library", "", "Location of photo library directory")
	dataDir    = flag.String("data", "", "Location of index directory (default: <library>/.camroll)")
	addr       = flag.String("addr", "", "host:port to bind to")
	rescan     = flag.String("rescan", "", "cron spec for periodic rescans, e.g. @every 1h")
	watchFlag  = flag.Bool("watch", false, "watch the library for changes and reindex")
	yes        = flag.Bool("yes", false, "approve asset creation and permission requests without asking")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	c, err := camroll.LoadConfig(*configPath)
	if err != nil {
		klog.Exitf("config: %v", err)
	}
	override(c)

	if c.LibraryDir == "" {
		klog.Exitf("--library is a required flag")
	}
	c.SetDefaults()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setup.Open(ctx, c)
	if err != nil {
		klog.Exitf("setup failed: %v", err)
	}
	defer env.Close()

	if _, err := env.Scanner.Scan(ctx); err != nil {
		klog.Exitf("index failed: %v", err)
	}

	var wg sync.WaitGroup
	if *watchFlag {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := index.Watch(ctx, env.Scanner); err != nil {
				klog.Errorf("watch failed: %v", err)
			}
		}()
	}

	if c.Rescan != "" {
		cr, err := index.Schedule(ctx, c.Rescan, env.Scanner)
		if err != nil {
			klog.Exitf("rescan: %v", err)
		}
		defer cr.Stop()
	}

	serve(ctx, c.Addr, bridge.New(env.Library).Router())
	wg.Wait()
}

// override applies flags that were set on the command line.
func override(c *camroll.Config) {
	if *libDir != "" {
		c.LibraryDir = *libDir
	}
	if *dataDir != "" {
		c.DataDir = *dataDir
	}
	if *addr != "" {
		c.Addr = *addr
	}
	if *rescan != "" {
		c.Rescan = *rescan
	}
	if *yes {
		c.AutoApprove = true
	}
}

// serve serves the bridge until ctx is done.
func serve(ctx context.Context, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			klog.Errorf("shutdown: %v", err)
		}
	}()

	klog.Infof("Listening on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		klog.Exitf("listen failed: %v", err)
	}
}
