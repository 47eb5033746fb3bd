// Package main is a minimal HTTP health check binary for use in distroless
// containers running crptapi with metrics enabled. It exits 0 when the
// /health endpoint returns HTTP 200, and 1 otherwise. The port is taken from
// CRPTAPI_METRICS_PORT and defaults to 9090.
package main

import (
	"net/http"
	"os"
	"time"
)

func main() {
	port := os.Getenv("CRPTAPI_METRICS_PORT")
	if port == "" {
		port = "9090"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost:" + port + "/health")
	if err != nil {
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
