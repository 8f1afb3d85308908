package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/gravity/engine"
	"github.com/spaghettifunk/gravity/engine/config"
	"github.com/spaghettifunk/gravity/engine/core"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		panic(err)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		panic(err)
	}

	if err := eng.Initialize(); err != nil {
		core.LogError("engine initialization failed: %v", err)
		eng.Shutdown()
		os.Exit(1)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = eng.Shutdown()
	}()

	// warm the shader caches before entering the frame loop
	for _, assetId := range []int64{1, 2} {
		if err := eng.LoadAsset(assetId); err != nil {
			core.LogWarn("asset %d failed to load: %v", assetId, err)
		}
	}

	if err := eng.Run(); err != nil {
		core.LogError("engine run failed: %v", err)
	}

	if err := eng.Shutdown(); err != nil {
		core.LogError("engine shutdown failed: %v", err)
	}
}
