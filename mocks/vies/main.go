// Command vies-mock serves a canned VIES checkVat endpoint for local runs and
// the e2e suite.
//
// Numbers are looked up in a fixed registry. A few reserved numbers drive the
// failure paths:
//
//	BUSY1     answers with the env:Server fault on the first call, then valid
//	BUSYALL   always answers env:Server
//	FAULT     answers with an INVALID_INPUT fault
//	HTTP500   answers 500 with no envelope
//	SLOW      sleeps for -slow before answering valid
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"
)

func main() {
	addr := flag.String("addr", ":8099", "listen address")
	slow := flag.Duration("slow", 3*time.Second, "delay applied to the SLOW number")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "vies-mock")
	srv := &http.Server{
		Addr:              *addr,
		Handler:           newServer(defaultRegistry(), *slow, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
