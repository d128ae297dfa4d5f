// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ziutektech/tanklink/pkg/config"
	"github.com/ziutektech/tanklink/pkg/link"
	"github.com/ziutektech/tanklink/pkg/observability"
	"github.com/ziutektech/tanklink/pkg/transport"
	"github.com/ziutektech/tanklink/pkg/wire"
)

// linkCodec returns the host codec configured for the link
func linkCodec(c config.LinkConfig) wire.Codec {
	codec := wire.HostCodec()
	codec.SwapID = c.SwapID
	codec.MaxPayload = c.MaxPayload
	return codec
}

// newSession creates a session for the configured endpoint without opening it
func newSession(log *zap.Logger) (*link.Session, transport.Endpoint) {
	ep := transport.EndpointFromConfig(cfg.Link)
	s := link.NewSession(transport.DialerFor(ep), link.Options{
		Codec:         linkCodec(cfg.Link),
		QueueCapacity: cfg.Link.QueueCapacity,
		Logger:        log.Named("link"),
	})
	return s, ep
}

// OpenSession opens a session to the configured tank
func OpenSession(ctx context.Context) (*link.Session, transport.Endpoint, error) {
	s, ep := newSession(logger)
	if err := s.Open(ctx); err != nil {
		return nil, ep, fmt.Errorf("%s: %w", ep, err)
	}
	return s, ep, nil
}

// quietLogger returns a logger that only writes to files. Full-screen
// interfaces use it so log lines do not tear the display.
func quietLogger() *zap.Logger {
	c := cfg.Log
	var outs []string
	for _, o := range c.Outputs {
		switch strings.ToLower(o) {
		case "stdout", "stderr":
		default:
			outs = append(outs, o)
		}
	}
	if len(outs) == 0 && !c.Rotation.Enable {
		return zap.NewNop()
	}
	if len(outs) == 0 {
		outs = []string{c.Rotation.Filename}
	}
	c.Outputs = outs
	l, err := observability.SetupLogger(c)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
