package main

import (
	"context"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/rental-portal/internal/config"
	"github.com/iliyamo/rental-portal/internal/queue"
)

func quietEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// A listener failure comes back to the caller instead of exiting the process.
func TestServeReturnsListenError(t *testing.T) {
	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), quietEcho(), "256.0.0.1:bad", zerolog.Nop()) }()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return on a bad address")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, quietEcho(), "127.0.0.1:0", zerolog.Nop()) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestNewPublisherDisabled(t *testing.T) {
	cfg := config.Portal{Events: config.Events{Enabled: false}}
	assert.IsType(t, queue.Noop{}, newPublisher(cfg, zerolog.Nop()))
}
