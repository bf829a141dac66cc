package rag

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestPolicy_Delays(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   []time.Duration
	}{
		{"default", DefaultPolicy(), []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
		{"capped", Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 3 * time.Second},
			[]time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second}},
		{"single attempt", Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}, []time.Duration{time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Delays(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicy_BackoffIsFreshPerCall(t *testing.T) {
	p := DefaultPolicy()
	first, _ := p.Backoff().Next()
	second, _ := p.Backoff().Next()
	if first != time.Second || second != time.Second {
		t.Errorf("each schedule must start at the base delay: got %v, %v", first, second)
	}
}

func TestTimerSleeper(t *testing.T) {
	if err := (TimerSleeper{}).Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("short sleep: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := (TimerSleeper{}).Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled sleep did not return promptly")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("503 from upstream"), true},
		{"unavailable", status.Error(codes.Unavailable, "x"), true},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "quota"), true},
		{"deadline status", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"wrapped unavailable", fmt.Errorf("complete: %w", status.Error(codes.Unavailable, "x")), true},
		{"invalid argument", status.Error(codes.InvalidArgument, "x"), false},
		{"unauthenticated", status.Error(codes.Unauthenticated, "x"), false},
		{"permission denied", status.Error(codes.PermissionDenied, "x"), false},
		{"unimplemented", status.Error(codes.Unimplemented, "x"), false},
		{"context cancelled", context.Canceled, false},
		{"wrapped deadline", fmt.Errorf("rpc: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v): got %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
