/*
main.go - quote-engine server binary

PURPOSE:
  Wires the SQLite store, the API handler, and the HTTP router together
  and runs the server until SIGINT/SIGTERM, then drains in-flight
  requests before exiting.

FLAGS:
  -addr  listen address (default :8080)
  -db    SQLite database path; ":memory:" keeps everything in RAM and
         is handy together with POST /api/scenarios/load

SEE ALSO:
  - api/server.go: Route table and middleware
  - store/sqlite/sqlite.go: Persistence
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fabriq/quote-engine/api"
	"github.com/fabriq/quote-engine/store/sqlite"
)

const shutdownGrace = 30 * time.Second

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", "quotes.db", "SQLite database path (\":memory:\" for ephemeral)")
	flag.Parse()

	if err := run(*addr, *dbPath); err != nil {
		log.Fatal(err)
	}
}

func run(addr, dbPath string) error {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(api.NewHandler(store)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("quote-engine listening on %s (db: %s)", addr, dbPath)
		errc <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Printf("received %s, draining connections", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("server stopped")
	return nil
}
