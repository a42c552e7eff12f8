package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/projectdiscovery/goflags"

	"github.com/hostinger/tnlneigh/internal/api"
	"github.com/hostinger/tnlneigh/internal/ctl"
	"github.com/hostinger/tnlneigh/internal/logger"
	"github.com/hostinger/tnlneigh/internal/neighbor"
	"github.com/hostinger/tnlneigh/internal/prober"
	"github.com/hostinger/tnlneigh/internal/resolver"
	"github.com/hostinger/tnlneigh/internal/seq"
	"github.com/hostinger/tnlneigh/internal/sniffer"
	"github.com/hostinger/tnlneigh/internal/snoop"
)

type options struct {
	snifferMode  bool
	ifacePattern string
	apiAddress   string
	sweepSeconds int
	probeMode    bool
	debugMode    bool
}

func parseOptions() *options {
	opts := &options{}
	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`tnlneigh maintains a passively learned (bridge, IP) → MAC cache for tunnel encapsulation`)

	flagSet.CreateGroup("input", "Input",
		flagSet.BoolVar(&opts.snifferMode, "sniffer", false, "enable ARP/NA sniffing on matching interfaces"),
		flagSet.StringVarP(&opts.ifacePattern, "interface-pattern", "if", `^(br|tap)\d+`, "regexp of interfaces to snoop on"),
	)

	flagSet.CreateGroup("cache", "Cache",
		flagSet.IntVarP(&opts.sweepSeconds, "sweep-interval", "si", 5, "seconds between aging sweeps"),
		flagSet.BoolVar(&opts.probeMode, "probe", false, "ping entries nearing expiry so replies refresh them"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.StringVar(&opts.apiAddress, "port", "127.0.0.1:54321", "address for the admin API server"),
		flagSet.BoolVar(&opts.debugMode, "debug", false, "enable debug logging"),
	)

	if err := flagSet.Parse(); err != nil {
		logger.Fatal("Could not parse flags: %v", err)
	}
	return opts
}

func main() {
	opts := parseOptions()
	logger.Init(opts.debugMode)

	notify := seq.New()
	nm := neighbor.NewManager(notify)
	snooper := snoop.NewSnooper(nm)

	a := &api.API{NM: nm}
	control := ctl.New(nm, resolver.New())
	control.RegisterCommands(a)

	ctx, cancel := context.WithCancel(context.Background())

	if opts.snifferMode {
		sm, err := sniffer.NewManager(snooper, opts.ifacePattern)
		if err != nil {
			logger.Fatal("Failed to initialize sniffer: %v", err)
		}
		a.Sniffer = sm
		go sm.Run()
	}

	if opts.probeMode {
		go prober.New(nm).Run(ctx)
	}

	http.HandleFunc("/neighbors", a.ListNeighborsHandler)
	http.HandleFunc("/sniffed-interfaces", a.ListSniffedInterfacesHandler)
	http.HandleFunc("/command", a.CommandHandler)

	go func() {
		logger.Info("API server listening on %s", opts.apiAddress)
		if err := http.ListenAndServe(opts.apiAddress, nil); err != nil {
			logger.Error("HTTP server failed: %v", err)
		}
	}()

	go func() {
		last := notify.Read()
		for {
			select {
			case <-ctx.Done():
				return
			case <-notify.Wait(last):
				last = notify.Read()
				logger.Debug("Neighbor cache changed, seq=%d", last)
			}
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-c
		logger.Info("Received signal: %s. Cleaning up and exiting...", sig)
		cancel()
		os.Exit(0)
	}()

	ticker := time.NewTicker(time.Duration(opts.sweepSeconds) * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		nm.Run()
	}
}
