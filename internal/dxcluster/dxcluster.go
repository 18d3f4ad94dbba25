/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dxcluster maintains a telnet connection to a DX cluster node and
// feeds received spots to the event bus, the API ring buffer and the
// database.
package dxcluster

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/doccodyblue/openwebrx/internal/events"
	"github.com/doccodyblue/openwebrx/internal/models"
	"github.com/doccodyblue/openwebrx/internal/telemetry"
)

const (
	maxSpots       = 100
	initialBackoff = 5 * time.Second
	maxBackoff     = 300 * time.Second
)

// spotPattern matches standard cluster spot lines, e.g.
// "DX de DL1ABC:     7074.0  K1ABC        FT8 -12dB           1845Z"
var spotPattern = regexp.MustCompile(`^DX de ([A-Z0-9/\-]+):?\s+(\d+\.?\d*)\s+([A-Z0-9/]+)\s*(.*?)\s*(\d{4})Z`)

// Spot is a received cluster spot. Frequency is in Hz.
type Spot struct {
	Spotter   string    `json:"spotter"`
	Callsign  string    `json:"callsign"`
	Frequency int64     `json:"frequency"`
	Comment   string    `json:"comment"`
	SpottedAt time.Time `json:"spotted_at"`
}

// Client connects to one cluster node. Run blocks until the context ends,
// reconnecting with exponential backoff.
type Client struct {
	host        string
	port        int
	callsign    string
	loginScript []string
	logger      zerolog.Logger
	bus         *events.Bus
	db          *gorm.DB // optional

	mu    sync.Mutex
	spots []Spot // ring of the most recent spots, newest last
}

// New creates a cluster client. loginScript lines are sent after the callsign
// on every connect; db may be nil to skip persistence.
func New(host string, port int, callsign string, loginScript []string, bus *events.Bus, db *gorm.DB, logger zerolog.Logger) *Client {
	return &Client{
		host:        host,
		port:        port,
		callsign:    callsign,
		loginScript: loginScript,
		logger:      logger.With().Str("component", "dxcluster").Str("host", host).Logger(),
		bus:         bus,
		db:          db,
	}
}

// Spots returns the most recent spots, newest last.
func (c *Client) Spots() []Spot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Spot(nil), c.spots...)
}

// Run connects and keeps reading until ctx is cancelled. Connection loss
// doubles the retry delay up to five minutes; a successful session resets it.
func (c *Client) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		err := c.session(ctx, func() { backoff = initialBackoff })
		if ctx.Err() != nil {
			c.logger.Info().Msg("dx cluster client stopped")
			return
		}

		c.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("dx cluster connection lost")
		c.bus.Publish(events.EventDXClusterStatus, events.Payload{
			"connected": false,
			"host":      c.host,
		})

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		telemetry.DXClusterReconnectsTotal.Inc()
	}
}

// session runs one connection until it drops. connected is called once the
// login exchange is written, so Run can reset its retry delay.
func (c *Client) session(ctx context.Context, connected func()) error {
	dialer := net.Dialer{Timeout: 30 * time.Second}
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	// close the connection when ctx ends so the read loop unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if _, err := fmt.Fprintf(conn, "%s\r\n", c.callsign); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	for _, line := range c.loginScript {
		if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
			return fmt.Errorf("login script: %w", err)
		}
	}
	connected()

	c.logger.Info().Str("callsign", c.callsign).Msg("connected to dx cluster")
	c.bus.Publish(events.EventDXClusterStatus, events.Payload{
		"connected": true,
		"host":      c.host,
	})

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		spot, ok := parseSpot(line, time.Now())
		if !ok {
			continue
		}
		c.record(spot)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return fmt.Errorf("connection closed by %s", addr)
}

// parseSpot extracts a spot from a cluster line. The cluster reports the
// frequency in kHz and the spot time as HHMM UTC of the current day.
func parseSpot(line string, now time.Time) (Spot, bool) {
	m := spotPattern.FindStringSubmatch(line)
	if m == nil {
		return Spot{}, false
	}

	khz, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Spot{}, false
	}

	spotted := now.UTC()
	if hhmm, err := time.Parse("1504", m[5]); err == nil {
		spotted = time.Date(spotted.Year(), spotted.Month(), spotted.Day(),
			hhmm.Hour(), hhmm.Minute(), 0, 0, time.UTC)
	}

	return Spot{
		Spotter:   m[1],
		Callsign:  m[3],
		Frequency: int64(khz * 1000),
		Comment:   strings.TrimSpace(m[4]),
		SpottedAt: spotted,
	}, true
}

// record stores the spot in the ring, publishes it and persists it.
func (c *Client) record(spot Spot) {
	c.mu.Lock()
	c.spots = append(c.spots, spot)
	if len(c.spots) > maxSpots {
		c.spots = c.spots[len(c.spots)-maxSpots:]
	}
	c.mu.Unlock()

	telemetry.DXSpotsTotal.Inc()
	c.logger.Debug().
		Str("callsign", spot.Callsign).
		Int64("frequency", spot.Frequency).
		Msg("spot received")

	c.bus.Publish(events.EventDXSpot, events.Payload{
		"spotter":   spot.Spotter,
		"callsign":  spot.Callsign,
		"frequency": spot.Frequency,
		"comment":   spot.Comment,
	})

	if c.db == nil {
		return
	}
	row := models.Spot{
		ID:        uuid.NewString(),
		Spotter:   spot.Spotter,
		Callsign:  spot.Callsign,
		Frequency: spot.Frequency,
		Comment:   spot.Comment,
		SpottedAt: spot.SpottedAt,
	}
	if err := c.db.Create(&row).Error; err != nil {
		c.logger.Warn().Err(err).Msg("failed to persist spot")
	}
}
