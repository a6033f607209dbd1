package util

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	s := Stack[int]{}
	_, ok := s.Pop()
	assert.False(t, ok)

	for i1 := 1; i1 <= 3; i1++ {
		s.Push(i1)
	}
	require.Equal(t, 3, s.Size())

	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, 3, top)

	e, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, 3, e)
	e, ok = s.Get(3)
	require.True(t, ok)
	assert.Equal(t, 1, e)
	_, ok = s.Get(4)
	assert.False(t, ok)

	e, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, e)
	assert.Equal(t, 2, s.Size())
}

func TestLabels(t *testing.T) {
	l := Labels{}
	assert.Equal(t, "then", l.New(LabelThen))
	assert.Equal(t, "then1", l.New(LabelThen))
	assert.Equal(t, "loop", l.New(LabelLoop))
	assert.Equal(t, "label.error", l.New(LabelType(99)))
}

func TestThreadCount(t *testing.T) {
	assert.Equal(t, 1, Options{}.ThreadCount(4))
	assert.Equal(t, 2, Options{Threads: 8}.ThreadCount(2))
	assert.Equal(t, MaxThreads, Options{Threads: 1000}.ThreadCount(1000))
}

func TestReadSourcesAndWriteOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "kernel.yaml")
	require.NoError(t, os.WriteFile(src, []byte("name: kernel\n"), 0644))

	res, err := ReadSources(Options{Src: []string{src}}, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "kernel.yaml", res[0].Name)

	res, err = ReadSources(Options{}, strings.NewReader("name: piped\n"))
	require.NoError(t, err)
	assert.Equal(t, "stdin", res[0].Name)

	out := filepath.Join(dir, "out.tir")
	require.NoError(t, WriteOutput(Options{Out: out}, nil, "module"))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "module", string(b))

	sb := strings.Builder{}
	require.NoError(t, WriteOutput(Options{}, &sb, "stdout"))
	assert.Equal(t, "stdout", sb.String())
}

func TestReadSourcesTimeout(t *testing.T) {
	r, w := io.Pipe()
	_, err := ReadSources(Options{}, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got none")

	// The reader was closed, so the pending read has returned.
	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	_, err = ReadSources(Options{}, strings.NewReader(""))
	assert.Error(t, err)
}
