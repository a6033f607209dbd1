package util

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Source is one AST document read from file or stdin.
type Source struct {
	Name string // Base name of the document, "stdin" when read from standard input.
	Data []byte // Raw document.
}

// ---------------------
// ----- Constants -----
// ---------------------

// stdinTimeout is how long ReadSources waits for input on stdin.
const stdinTimeout = 500 * time.Millisecond

// ---------------------
// ----- Functions -----
// ---------------------

// ReadSources reads AST documents from the files named in opt, or from stdin if no file is named.
// When reading stdin the function waits for a short period for input. If no input on stdin is
// provided the function returns an error and closes stdin if it is an io.Closer, which releases the
// reading go routine. A reader that cannot be closed keeps its go routine blocked until it returns.
func ReadSources(opt Options, stdin io.Reader) ([]Source, error) {
	if len(opt.Src) > 0 {
		res := make([]Source, 0, len(opt.Src))
		for _, e1 := range opt.Src {
			b, err := os.ReadFile(e1)
			if err != nil {
				return nil, err
			}
			res = append(res, Source{Name: filepath.Base(e1), Data: b})
		}
		return res, nil
	}

	c := make(chan []byte, 1)
	cerr := make(chan error, 1)

	// Concurrently wait for input on stdin.
	go func() {
		b, err := io.ReadAll(bufio.NewReader(stdin))
		if err != nil {
			cerr <- err
			return
		}
		c <- b
	}()

	// Select between input from stdin or timer expiry.
	select {
	case <-time.After(stdinTimeout):
		if cl, ok := stdin.(io.Closer); ok {
			_ = cl.Close()
		}
		return nil, errors.New("expected input from stdin, got none")
	case err := <-cerr:
		return nil, err
	case b := <-c:
		if len(b) == 0 {
			return nil, errors.New("expected input from stdin, got none")
		}
		return []Source{{Name: "stdin", Data: b}}, nil
	}
}

// WriteOutput writes s to the file named by opt.Out, or to w if no output file is given.
func WriteOutput(opt Options, w io.Writer, s string) error {
	if len(opt.Out) == 0 {
		_, err := io.WriteString(w, s)
		return err
	}
	f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(s); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "could not write %s", opt.Out)
	}
	return f.Close()
}
