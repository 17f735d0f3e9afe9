package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/niks-yad/BLE-HomeKit-Bridge/bluetooth"
	"github.com/niks-yad/BLE-HomeKit-Bridge/server"
	"github.com/niks-yad/BLE-HomeKit-Bridge/utils"
)

func main() {
	var (
		mac        = flag.String("mac", "", "BLE device MAC address")
		host       = flag.String("host", "0.0.0.0", "HTTP listen host")
		port       = flag.Int("port", 5000, "HTTP server port")
		logFile    = flag.String("log", "", "log file path (default: stdout only)")
		configFile = flag.String("config", "", "config file path (default: $XDG_CONFIG_HOME/istripd/config.json)")
	)
	flag.Parse()

	if *logFile != "" {
		file, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Printf("Warning: could not open log file: %v", err)
		} else {
			defer file.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, file))
			log.Printf("Logging to %s", *logFile)
		}
	}

	cfg, err := loadConfig(*configFile)
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: config not loaded: %v", err)
	}

	// Flags override the config file.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["mac"] && cfg.MAC != "" {
		*mac = cfg.MAC
	}
	if !set["port"] && cfg.Port != 0 {
		*port = cfg.Port
	}

	log.Println("Starting iStrip+ bridge")
	log.Printf("  Device MAC: %q", strings.ToUpper(*mac))
	log.Printf("  Listen: %s:%d", *host, *port)

	hub := utils.NewWebSocketHub()
	state := utils.NewStateStore()
	queue := bluetooth.NewCommandQueue()
	encoder := bluetooth.NewEncoder()

	transport, err := bluetooth.NewBluezTransport()
	if err != nil {
		log.Fatalf("bluetooth unavailable: %v", err)
	}

	link := bluetooth.NewLinkManager(transport, queue, hub)
	if *mac != "" {
		link.SetTarget(strings.ToUpper(*mac))
	}
	link.Start()

	srv := server.New(link, queue, encoder, state, transport, hub)
	go func() {
		if err := srv.Start(fmt.Sprintf("%s:%d", *host, *port)); err != nil {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	link.Stop()
	log.Println("Bridge stopped")
}
