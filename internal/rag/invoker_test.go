package rag

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/danielpatrickdp/amal/go-router/internal/faults"
	"github.com/danielpatrickdp/amal/go-router/internal/language"
)

// #region fakes

type fakeRetriever struct {
	passages []Passage
	err      error
	calls    int
	lastK    int
}

func (f *fakeRetriever) Search(_ context.Context, _ string, k int) ([]Passage, error) {
	f.calls++
	f.lastK = k
	return f.passages, f.err
}

type fakeGenerator struct {
	errs       []error // errs[i] is returned by call i+1; nil or past the end succeeds
	text       string
	calls      int
	lastPrompt string
}

func (f *fakeGenerator) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.calls <= len(f.errs) && f.errs[f.calls-1] != nil {
		return "", f.errs[f.calls-1]
	}
	return f.text, nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func onePassage() []Passage {
	return []Passage{{ID: "p1", Text: "Cocaine withdrawal symptoms include fatigue.", Metadata: map[string]string{MetaCategory: "withdrawal"}}}
}

func newTestInvoker(t *testing.T, r Retriever, g Generator, s Sleeper) *Invoker {
	t.Helper()
	cfg := DefaultInvokerConfig()
	cfg.Sleeper = s
	inv, err := NewInvoker(r, g, cfg)
	if err != nil {
		t.Fatalf("new invoker: %v", err)
	}
	return inv
}

var errUnavailable = status.Error(codes.Unavailable, "model overloaded")

// #endregion fakes

// #region constructor-tests

func TestNewInvoker_Validation(t *testing.T) {
	r, g := &fakeRetriever{}, &fakeGenerator{}
	tests := []struct {
		name string
		r    Retriever
		g    Generator
		cfg  InvokerConfig
	}{
		{"nil retriever", nil, g, DefaultInvokerConfig()},
		{"nil generator", r, nil, DefaultInvokerConfig()},
		{"zero top k", r, g, InvokerConfig{TopK: 0, Policy: DefaultPolicy()}},
		{"zero attempts", r, g, InvokerConfig{TopK: 5, Policy: Policy{MaxAttempts: 0, BaseDelay: time.Second}}},
		{"zero base delay", r, g, InvokerConfig{TopK: 5, Policy: Policy{MaxAttempts: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewInvoker(tt.r, tt.g, tt.cfg); !errors.Is(err, faults.ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
		})
	}
}

// #endregion constructor-tests

// #region invoke-tests

func TestInvoke_Success(t *testing.T) {
	r := &fakeRetriever{passages: onePassage()}
	g := &fakeGenerator{text: "Fatigue and low mood are common."}
	s := &recordingSleeper{}
	inv := newTestInvoker(t, r, g, s)

	ans, err := inv.Invoke(context.Background(), "What are cocaine withdrawal symptoms?", language.English)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Kind != Generated || ans.Text != g.text {
		t.Errorf("answer: got %+v", ans)
	}
	if ans.Attempts != 1 || ans.Passages != 1 {
		t.Errorf("attempts/passages: got %d/%d, want 1/1", ans.Attempts, ans.Passages)
	}
	if r.lastK != 5 {
		t.Errorf("top k: got %d, want 5", r.lastK)
	}
	if len(s.delays) != 0 {
		t.Errorf("no waits expected, got %v", s.delays)
	}
	if want := BuildPrompt(language.English, BuildContext(onePassage()), "What are cocaine withdrawal symptoms?"); g.lastPrompt != want {
		t.Errorf("prompt mismatch:\n%s", g.lastPrompt)
	}
}

func TestInvoke_NoPassages(t *testing.T) {
	r := &fakeRetriever{}
	g := &fakeGenerator{text: "unused"}
	s := &recordingSleeper{}
	inv := newTestInvoker(t, r, g, s)

	ans, err := inv.Invoke(context.Background(), "q", language.French)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Kind != NoInformation {
		t.Errorf("kind: got %q, want no_information", ans.Kind)
	}
	if g.calls != 0 || ans.Attempts != 0 {
		t.Errorf("generator calls: got %d (attempts %d), want 0", g.calls, ans.Attempts)
	}
	if len(s.delays) != 0 {
		t.Errorf("no waits expected, got %v", s.delays)
	}
}

func TestInvoke_RetriesThenSucceeds(t *testing.T) {
	g := &fakeGenerator{errs: []error{errUnavailable, errUnavailable}, text: "ok"}
	s := &recordingSleeper{}
	inv := newTestInvoker(t, &fakeRetriever{passages: onePassage()}, g, s)

	ans, err := inv.Invoke(context.Background(), "q", language.Arabic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Attempts != 3 || g.calls != 3 {
		t.Errorf("attempts: got %d (calls %d), want 3", ans.Attempts, g.calls)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !reflect.DeepEqual(s.delays, want) {
		t.Errorf("delays: got %v, want %v", s.delays, want)
	}
}

func TestInvoke_ExhaustedAfterThreeTransientFailures(t *testing.T) {
	last := errors.New("deadline on upstream")
	g := &fakeGenerator{errs: []error{errUnavailable, errUnavailable, last}}
	s := &recordingSleeper{}
	inv := newTestInvoker(t, &fakeRetriever{passages: onePassage()}, g, s)

	ans, err := inv.Invoke(context.Background(), "q", language.English)
	if !errors.Is(err, faults.ErrGenerationExhausted) {
		t.Fatalf("got %v, want ErrGenerationExhausted", err)
	}
	if !errors.Is(err, last) {
		t.Errorf("exhausted error must carry the last cause, got %v", err)
	}
	if g.calls != 3 || ans.Attempts != 3 {
		t.Errorf("attempts: got %d (calls %d), want 3", ans.Attempts, g.calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if !reflect.DeepEqual(s.delays, want) {
		t.Errorf("delays: got %v, want %v", s.delays, want)
	}

	var ex *faults.ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatal("expected *faults.ExhaustedError")
	}
	if ex.Attempts != 3 || !reflect.DeepEqual(ex.Delays, want) {
		t.Errorf("exhausted detail: %+v", ex)
	}
}

func TestInvoke_PermanentErrorStopsRetrying(t *testing.T) {
	g := &fakeGenerator{errs: []error{status.Error(codes.InvalidArgument, "prompt too long")}}
	s := &recordingSleeper{}
	inv := newTestInvoker(t, &fakeRetriever{passages: onePassage()}, g, s)

	_, err := inv.Invoke(context.Background(), "q", language.English)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, faults.ErrGenerationExhausted) {
		t.Error("permanent failure must not report exhaustion")
	}
	if g.calls != 1 || len(s.delays) != 0 {
		t.Errorf("calls %d, delays %v; want 1 call and no waits", g.calls, s.delays)
	}
}

func TestInvoke_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := &fakeGenerator{errs: []error{errUnavailable, errUnavailable, errUnavailable}}
	sleeper := SleeperFunc(func(ctx context.Context, _ time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	inv := newTestInvoker(t, &fakeRetriever{passages: onePassage()}, g, sleeper)

	_, err := inv.Invoke(ctx, "q", language.English)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if g.calls != 1 {
		t.Errorf("no attempt may start after cancellation; calls = %d", g.calls)
	}
}

func TestInvoke_RetrievalError(t *testing.T) {
	g := &fakeGenerator{text: "unused"}
	inv := newTestInvoker(t, &fakeRetriever{err: errors.New("collection missing")}, g, &recordingSleeper{})

	_, err := inv.Invoke(context.Background(), "q", language.English)
	if err == nil {
		t.Fatal("expected retrieval error")
	}
	if g.calls != 0 {
		t.Errorf("generator called %d times after failed retrieval", g.calls)
	}
}

func TestInvoke_OnBackoffHook(t *testing.T) {
	var attempts []int
	cfg := DefaultInvokerConfig()
	cfg.Sleeper = &recordingSleeper{}
	cfg.OnBackoff = func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) }

	g := &fakeGenerator{errs: []error{errUnavailable, errUnavailable, errUnavailable}}
	inv, err := NewInvoker(&fakeRetriever{passages: onePassage()}, g, cfg)
	if err != nil {
		t.Fatalf("new invoker: %v", err)
	}
	inv.Invoke(context.Background(), "q", language.English)

	if want := []int{1, 2, 3}; !reflect.DeepEqual(attempts, want) {
		t.Errorf("hook attempts: got %v, want %v", attempts, want)
	}
}

func TestInvoke_LimiterObservesCancellation(t *testing.T) {
	cfg := DefaultInvokerConfig()
	cfg.Sleeper = &recordingSleeper{}
	cfg.Limiter = rate.NewLimiter(rate.Inf, 1)

	g := &fakeGenerator{text: "ok"}
	inv, err := NewInvoker(&fakeRetriever{passages: onePassage()}, g, cfg)
	if err != nil {
		t.Fatalf("new invoker: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := inv.Invoke(ctx, "q", language.English); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if g.calls != 0 {
		t.Errorf("generator called %d times with a cancelled context", g.calls)
	}

	ans, err := inv.Invoke(context.Background(), "q", language.English)
	if err != nil || ans.Text != "ok" {
		t.Errorf("limited invoke: got %+v, %v", ans, err)
	}
}

// #endregion invoke-tests
