package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"crisis-sim/client/internal/stub"
)

func main() {
	addr := flag.String("addr", ":8000", "http listen address")
	maxTurns := flag.Int("max-turns", 3, "submissions per simulation before conclusion")
	clipCount := flag.Int("clips", 3, "video clips generated per turn")
	delay := flag.Duration("delay", 300*time.Millisecond, "simulated generation delay per step")
	flag.Parse()

	store := stub.NewInMemoryStore()
	server := stub.NewServer(store, stub.Options{
		MaxTurns:        *maxTurns,
		ClipCount:       *clipCount,
		GenerationDelay: *delay,
	})

	log.Printf("crisis-sim stub backend listening on %s", *addr)
	if err := http.ListenAndServe(*addr, server.Routes()); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
