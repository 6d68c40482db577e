package passphrase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/sous/internal/keyring"
	"golang.org/x/term"
)

// EnvVar holds a passphrase for non-interactive use.
const EnvVar = "SOUS_MATCH_PASSWORD"

// ErrUnavailable is returned by a source that has nothing to offer.
var ErrUnavailable = errors.New("passphrase source unavailable")

// Request describes the passphrase being asked for.
type Request struct {
	Prompt  string
	Secret  bool
	Preset  []byte
	Account string // remote identifier, used by the keyring
}

// Source supplies a passphrase on demand.
type Source interface {
	Passphrase(ctx context.Context, req Request) ([]byte, error)
}

// Resolve returns req.Preset when set, otherwise asks src.
// The caller owns the returned slice and should clear it.
func Resolve(ctx context.Context, src Source, req Request) ([]byte, error) {
	if len(req.Preset) > 0 {
		return append([]byte(nil), req.Preset...), nil
	}
	if src == nil {
		return nil, ErrUnavailable
	}
	return src.Passphrase(ctx, req)
}

// Static always returns the same value. Useful for tests and scripting.
type Static []byte

func (s Static) Passphrase(context.Context, Request) ([]byte, error) {
	if len(s) == 0 {
		return nil, ErrUnavailable
	}
	return append([]byte(nil), s...), nil
}

// Env reads the passphrase from an environment variable (EnvVar when empty).
type Env string

func (e Env) Passphrase(context.Context, Request) ([]byte, error) {
	name := string(e)
	if name == "" {
		name = EnvVar
	}
	v := os.Getenv(name)
	if v == "" {
		return nil, ErrUnavailable
	}
	return []byte(v), nil
}

// FromEnv reads EnvVar directly, returning nil when unset.
func FromEnv() []byte {
	b, err := Env(EnvVar).Passphrase(context.Background(), Request{})
	if err != nil {
		return nil
	}
	return b
}

// Keyring reads a passphrase previously saved with `sous keyring save`.
type Keyring struct{}

func (Keyring) Passphrase(_ context.Context, req Request) ([]byte, error) {
	if req.Account == "" {
		return nil, ErrUnavailable
	}
	v, err := keyring.GetPassphrase(req.Account)
	if err != nil {
		// keyring backends fail differently on every OS; treat all as a miss
		return nil, ErrUnavailable
	}
	return []byte(v), nil
}

// Terminal prompts on the controlling terminal, without echo for secrets.
type Terminal struct {
	In  *os.File
	Out io.Writer
}

func (t Terminal) Passphrase(ctx context.Context, req Request) ([]byte, error) {
	in, out := t.In, t.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	if !term.IsTerminal(int(in.Fd())) {
		return nil, ErrUnavailable
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = "Passphrase: "
	}
	fmt.Fprint(out, prompt)

	fd := int(in.Fd())
	read := func() ([]byte, error) { return readLine(in) }
	restore := func() {}
	if req.Secret {
		// ReadPassword only restores echo when it returns, which an abandoned
		// read never does.
		state, err := term.GetState(fd)
		if err != nil {
			return nil, fmt.Errorf("failed to read terminal state: %w", err)
		}
		read = func() ([]byte, error) { return term.ReadPassword(fd) }
		restore = func() { _ = term.Restore(fd, state) }
	}

	b, err := readCancelable(ctx, read, restore)
	fmt.Fprintln(out) // New line after password
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return b, nil
}

// readCancelable runs read in the background. When ctx ends first, restore
// is called and the read is abandoned.
func readCancelable(ctx context.Context, read func() ([]byte, error), restore func()) ([]byte, error) {
	type result struct {
		b   []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		r.b, r.err = read()
		done <- r
	}()

	select {
	case <-ctx.Done():
		restore()
		return nil, ctx.Err()
	case r := <-done:
		return r.b, r.err
	}
}

func readLine(f *os.File) ([]byte, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			line = append(line, buf[0])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if l := len(line); l > 0 && line[l-1] == '\r' {
		line = line[:l-1]
	}
	return line, nil
}

// Chain consults sources in order until one succeeds.
type Chain []Source

func (c Chain) Passphrase(ctx context.Context, req Request) ([]byte, error) {
	for _, src := range c {
		b, err := src.Passphrase(ctx, req)
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		return b, err
	}
	return nil, ErrUnavailable
}

// Default is environment, then keyring, then terminal.
func Default() Source {
	return Chain{Env(EnvVar), Keyring{}, Terminal{}}
}
