package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/AJFrio/NodeNav-sub000/bluetooth"
	"github.com/AJFrio/NodeNav-sub000/config"
	"github.com/AJFrio/NodeNav-sub000/lights"
	"github.com/AJFrio/NodeNav-sub000/server"
	"github.com/AJFrio/NodeNav-sub000/utils"
)

func setupLogging(logDir string) func() {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		return func() {}
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, "nodenavd.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("Warning: could not open log file: %v", err)
		return func() {}
	}

	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	log.Printf("Logging to %s", filepath.Join(logDir, "nodenavd.log"))
	return func() { logFile.Close() }
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	closeLog := setupLogging(cfg.LogDir)
	defer closeLog()

	wsHub := utils.NewWebSocketHub()
	lightRegistry := lights.NewRegistry()

	// The Bluetooth daemon may still be coming up at boot; retry before
	// giving up on the bus entirely.
	var bus *bluetooth.SystemBus
	for retries := 0; retries < 10; retries++ {
		bus, err = bluetooth.NewSystemBus()
		if err == nil {
			break
		}
		log.Printf("Failed to reach Bluetooth daemon (attempt %d/10): %v", retries+1, err)
		time.Sleep(3 * time.Second)
	}
	if bus == nil {
		log.Fatalf("Could not reach the Bluetooth daemon: %v", err)
	}

	btManager := bluetooth.NewManager(bus, wsHub, bluetooth.Options{
		AdapterAlias: cfg.AdapterAlias,
		ScanWindow:   cfg.ScanWindow,
	})
	if err := btManager.Initialize(); err != nil {
		// No adapter means nothing else can function.
		log.Fatalf("Bluetooth initialization failed: %v", err)
	}
	btManager.Start()
	defer btManager.Stop()

	stopNet := make(chan struct{})
	defer close(stopNet)
	go server.RunConnectivityChecker(wsHub, cfg.ConnectivityHost, stopNet)

	srv := server.NewServer(cfg.ListenAddr, btManager, wsHub, lightRegistry)
	srv.Start()
}
