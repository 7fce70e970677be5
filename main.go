package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"stackvm/debugserver"
	"stackvm/debugtui"
	"stackvm/imagecache"
	"stackvm/vm"
)

var (
	devLog     = flag.Bool("dev", false, "Use zap's human-readable development logger instead of JSON")
	configPath = flag.String("config", "", "Path to a VM configuration YAML file")
	cacheAddr  = flag.String("cache", "", "memcached address to cache loaded bytecode images by content hash")
	httpDebug  = flag.String("http-debug", "", "Address to serve read-only VM state introspection on (implies -debug)")
	debugMode  = flag.Bool("debug", false, "Enter the interactive single-step debug TUI")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: stackvm [flags] <image-file>")
		os.Exit(2)
	}
	imagePath := flag.Arg(0)

	logger, err := vm.NewLogger(*devLog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := vm.DefaultConfig()
	if *configPath != "" {
		cfg, err = vm.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
		}
	}

	var cache *imagecache.Cache
	if *cacheAddr != "" {
		cache = imagecache.New(*cacheAddr)
	}
	image, digest, err := imagecache.LoadImage(cache, imagePath)
	if err != nil {
		logger.Fatal("failed to load image", zap.String("path", imagePath), zap.Error(err))
	}
	logger.Info("loaded image", zap.String("path", imagePath), zap.String("digest", digest), zap.Int("bytes", len(image)))

	machine := vm.New(cfg, logger)

	var tracers []vm.Tracer
	if cfg.TraceLevel == "debug" {
		tracers = append(tracers, vm.ZapTracer(logger))
	}

	if *httpDebug != "" {
		srv := debugserver.New(machine)
		tracers = append(tracers, srv)
		go func() {
			if err := srv.ListenAndServe(*httpDebug); err != nil {
				logger.Error("debug server stopped", zap.Error(err))
			}
		}()
		*debugMode = true
	}

	if *debugMode {
		runErr := debugtui.Run(machine, image, tracers...)
		exitOnFault(machine, runErr)
		return
	}

	if len(tracers) > 0 {
		machine.SetTracer(vm.MultiTracer(tracers...))
	}
	runErr := machine.Execute(image)
	exitOnFault(machine, runErr)
}

// exitOnFault prints a colorized diagnostic to stderr when running
// interactively, plain text otherwise, and sets the process exit code.
func exitOnFault(machine *vm.VM, err error) {
	if err == nil {
		return
	}
	out := colorable.NewColorable(os.Stderr)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(out, "\x1b[31mfault:\x1b[0m %s\n", err)
	} else {
		fmt.Fprintf(out, "fault: %s\n", err)
	}
	machine.Teardown()
	os.Exit(1)
}
