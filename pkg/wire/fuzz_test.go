// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package wire

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomCommand(rng *rand.Rand) Command {
	args := make([]byte, rng.Intn(MaxArgs+1))
	rng.Read(args)
	cmd, _ := NewCommand(Opcode(rng.Intn(256)), args...)
	cmd.ID = rng.Uint64()
	return cmd
}

func TestFuzzCommandRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	codecs := []Codec{HostCodec(), DeviceCodec()}

	for i := 0; i < rounds; i++ {
		codec := codecs[i%2]
		cmd := randomCommand(rng)
		data, err := codec.EncodeCommand(cmd)
		if err != nil {
			t.Fatalf("round %d: EncodeCommand() error = %v", i, err)
		}
		got, err := codec.ReadCommand(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("round %d: ReadCommand() error = %v", i, err)
		}
		if got != cmd {
			t.Fatalf("round %d: got %+v, want %+v", i, got, cmd)
		}
	}
}

func TestFuzzResultRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	codec := HostCodec()

	for i := 0; i < rounds; i++ {
		r := Result{
			Status: Status(rng.Intn(256)),
			Opcode: Opcode(rng.Intn(256)),
			ID:     rng.Uint64(),
		}
		if n := rng.Intn(DefaultMaxPayload + 1); n > 0 {
			r.Payload = make([]byte, n)
			rng.Read(r.Payload)
		}
		got, err := codec.ReadResult(bytes.NewReader(codec.EncodeResult(r)))
		if err != nil {
			t.Fatalf("round %d: ReadResult() error = %v", i, err)
		}
		if got.Status != r.Status || got.Opcode != r.Opcode || got.ID != r.ID || !bytes.Equal(got.Payload, r.Payload) {
			t.Fatalf("round %d: got %+v, want %+v", i, got, r)
		}
	}
}

// Arbitrary bytes must never panic the decoders
func TestFuzzDecodeRandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	codec := HostCodec()

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(64))
		rng.Read(data)

		_, _ = codec.DecodeCommand(data)
		_, _ = codec.DecodeResult(data)
		_, _ = codec.DecodeSensorState(data)
		_, _ = codec.ReadCommand(bytes.NewReader(data))
		_, _ = codec.ReadResult(bytes.NewReader(data))
		_ = codec.ValidateResult(Result{Opcode: OpGetSensorState, Payload: data})
	}
}
