// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ziutektech/tanklink/pkg/config"
	"github.com/ziutektech/tanklink/pkg/wire"
)

func TestParseBDAddr(t *testing.T) {
	tests := []struct {
		in      string
		want    [6]byte
		wantErr bool
	}{
		{"98:D3:31:FB:2A:1C", [6]byte{0x1C, 0x2A, 0xFB, 0x31, 0xD3, 0x98}, false},
		{"00:00:00:00:00:01", [6]byte{0x01, 0, 0, 0, 0, 0}, false},
		{"98:D3:31:FB:2A", [6]byte{}, true},
		{"98:D3:31:FB:2A:ZZ", [6]byte{}, true},
		{"98:D3:31:FB:2A:1C0", [6]byte{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBDAddr(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBDAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseBDAddr() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestEndpointFromConfig(t *testing.T) {
	c := config.Default().Link
	c.Kind = "RFCOMM"
	c.Address = "98:D3:31:FB:2A:1C"
	e := EndpointFromConfig(c)
	if e.Kind != KindRFCOMM || e.Channel != 1 || e.Timeout != 5*time.Second {
		t.Errorf("EndpointFromConfig() = %+v", e)
	}
	if !strings.Contains(e.String(), "98:D3:31:FB:2A:1C channel 1") {
		t.Errorf("String() = %q", e.String())
	}
}

func TestDialUnknownKind(t *testing.T) {
	_, err := Dial(context.Background(), Endpoint{Kind: "smoke-signal"})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Dial() error = %v, want ErrUnsupported", err)
	}
	if _, err := Listen("serial", "", ""); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Listen() error = %v, want ErrUnsupported", err)
	}
}

func TestLoopbackEchoesCommands(t *testing.T) {
	lb := NewLoopback()
	defer lb.Close()
	host := wire.HostCodec()

	cmd := wire.NewMoveCommand(wire.DirForward, 255)
	cmd.ID = 0x0102030405060708
	data, _ := host.EncodeCommand(cmd)

	// split across writes like the transmit path does
	if _, err := lb.Write(data[:wire.CommandHeaderSize]); err != nil {
		t.Fatalf("Write(header) error = %v", err)
	}
	if _, err := lb.Write(data[wire.CommandHeaderSize:]); err != nil {
		t.Fatalf("Write(args) error = %v", err)
	}

	res, err := host.ReadResult(lb)
	if err != nil {
		t.Fatalf("ReadResult() error = %v", err)
	}
	if res.Status != wire.StatusSuccess || res.Opcode != wire.OpMove || res.ID != cmd.ID {
		t.Errorf("result = %+v", res)
	}
	if !bytes.Equal(res.Payload, data) {
		t.Errorf("payload = % X, want % X", res.Payload, data)
	}
}

func TestLoopbackCloseUnblocksRead(t *testing.T) {
	lb := NewLoopback()
	done := make(chan error, 1)
	go func() {
		_, err := lb.Read(make([]byte, 4))
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	lb.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Read() after Close() returned nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("Read() still blocked after Close()")
	}
	if _, err := lb.Write([]byte{1}); err == nil {
		t.Error("Write() after Close() succeeded")
	}
}

func roundTrip(t *testing.T, l Listener, dial func(ctx context.Context) (Conn, error)) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan Conn, 1)
	go func() {
		c, err := l.Accept(ctx)
		if err != nil {
			t.Errorf("Accept() error = %v", err)
			accepted <- nil
			return
		}
		accepted <- c
	}()

	client, err := dial(ctx)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer client.Close()

	server := <-accepted
	if server == nil {
		t.FailNow()
	}
	defer server.Close()

	// two writes must arrive as one contiguous stream
	if _, err := client.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := client.Write([]byte{4, 5}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got := make([]byte, 5)
	if _, err := io.ReadFull(server, got); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("server read % X", got)
	}
}

func TestTCPRoundTrip(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenTCP() error = %v", err)
	}
	defer l.Close()
	roundTrip(t, l, func(ctx context.Context) (Conn, error) {
		return Dial(ctx, Endpoint{Kind: KindTCP, Address: l.Addr()})
	})
}

func TestWebSocketRoundTrip(t *testing.T) {
	l, err := Listen(KindWS, "127.0.0.1:0", "/tank")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer l.Close()
	roundTrip(t, l, func(ctx context.Context) (Conn, error) {
		return Dial(ctx, Endpoint{Kind: KindWS, URL: "ws://" + l.Addr() + "/tank"})
	})
}

func TestAcceptHonorsContext(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenTCP() error = %v", err)
	}
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Accept(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Accept() error = %v, want DeadlineExceeded", err)
	}
}

func TestWebSocketRejectsScheme(t *testing.T) {
	if _, err := DialWebSocket(context.Background(), "http://example.invalid/"); err == nil {
		t.Error("DialWebSocket(http://) succeeded")
	}
}
