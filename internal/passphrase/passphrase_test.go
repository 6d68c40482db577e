package passphrase

import (
	"context"
	"errors"
	"testing"

	"github.com/illarion/sous/internal/keyring"
	gokeyring "github.com/zalando/go-keyring"
)

type countingSource struct {
	calls int
	value []byte
	err   error
}

func (c *countingSource) Passphrase(context.Context, Request) ([]byte, error) {
	c.calls++
	return c.value, c.err
}

func TestResolvePresetWins(t *testing.T) {
	src := &countingSource{value: []byte("from-source")}

	got, err := Resolve(context.Background(), src, Request{Preset: []byte("preset")})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if string(got) != "preset" {
		t.Errorf("Resolve = %q, want preset", got)
	}
	if src.calls != 0 {
		t.Errorf("source consulted %d times despite preset", src.calls)
	}

	got, err = Resolve(context.Background(), src, Request{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if string(got) != "from-source" || src.calls != 1 {
		t.Errorf("Resolve = %q after %d calls", got, src.calls)
	}
}

func TestResolveNilSource(t *testing.T) {
	if _, err := Resolve(context.Background(), nil, Request{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestEnv(t *testing.T) {
	t.Setenv(EnvVar, "")
	if _, err := Env("").Passphrase(context.Background(), Request{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for empty env, got %v", err)
	}
	if FromEnv() != nil {
		t.Error("FromEnv should be nil when unset")
	}

	t.Setenv(EnvVar, "s3cret")
	got, err := Env("").Passphrase(context.Background(), Request{})
	if err != nil || string(got) != "s3cret" {
		t.Errorf("Env = %q, %v", got, err)
	}
	if string(FromEnv()) != "s3cret" {
		t.Error("FromEnv should read the variable")
	}
}

func TestKeyringSource(t *testing.T) {
	gokeyring.MockInit()

	if _, err := (Keyring{}).Passphrase(context.Background(), Request{Account: "abc"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}

	if err := keyring.SavePassphrase("abc", "stored"); err != nil {
		t.Fatalf("SavePassphrase failed: %v", err)
	}
	got, err := (Keyring{}).Passphrase(context.Background(), Request{Account: "abc"})
	if err != nil || string(got) != "stored" {
		t.Errorf("Keyring = %q, %v", got, err)
	}
}

func TestChain(t *testing.T) {
	miss := &countingSource{err: ErrUnavailable}
	hit := &countingSource{value: []byte("second")}
	never := &countingSource{value: []byte("third")}

	got, err := Chain{miss, hit, never}.Passphrase(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Chain = %q", got)
	}
	if miss.calls != 1 || hit.calls != 1 || never.calls != 0 {
		t.Errorf("unexpected call counts %d/%d/%d", miss.calls, hit.calls, never.calls)
	}

	boom := errors.New("boom")
	if _, err := (Chain{&countingSource{err: boom}, hit}).Passphrase(context.Background(), Request{}); !errors.Is(err, boom) {
		t.Errorf("hard errors should stop the chain, got %v", err)
	}

	if _, err := (Chain{miss}).Passphrase(context.Background(), Request{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("exhausted chain should be unavailable, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	if _, err := Static(nil).Passphrase(context.Background(), Request{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("empty Static should be unavailable, got %v", err)
	}
	s := Static("x")
	got, _ := s.Passphrase(context.Background(), Request{})
	got[0] = 'y'
	if string(s) != "x" {
		t.Error("Static should hand out copies")
	}
}

func TestReadCancelableRestoresOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	restored := make(chan struct{}, 1)
	read := func() ([]byte, error) {
		<-release
		return nil, errors.New("closed")
	}
	restore := func() { restored <- struct{}{} }

	cancel()
	_, err := readCancelable(ctx, read, restore)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	select {
	case <-restored:
	default:
		t.Error("terminal state was not restored after cancellation")
	}
}

func TestReadCancelableReturnsInput(t *testing.T) {
	restored := false
	read := func() ([]byte, error) { return []byte("typed"), nil }
	restore := func() { restored = true }

	b, err := readCancelable(context.Background(), read, restore)
	if err != nil {
		t.Fatalf("readCancelable failed: %v", err)
	}
	if string(b) != "typed" {
		t.Errorf("expected %q, got %q", "typed", b)
	}
	if restored {
		t.Error("restore should only run when the read is abandoned")
	}
}
