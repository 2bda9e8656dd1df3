package application

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runConsole(t *testing.T, app *App, input string) string {
	t.Helper()
	var out bytes.Buffer
	c := NewConsole(app, strings.NewReader(input), &out)
	require.NoError(t, c.Run(context.Background()))
	return out.String()
}

func TestNormalizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"new", "new"},
		{"/new", "new"},
		{"  /SHOW  ", "show"},
		{"/save sort", "save sort"},
		{"save   sort", "save sort"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeCommand(tt.in), "input %q", tt.in)
	}
}

func TestConsole_NewShowSave(t *testing.T) {
	app, dir := newTestApp(t)

	input := strings.Join([]string{
		"/new",
		"Иван", "Сидоров", "", "4510123456", "14.03.1985",
		"new",
		"Анна", "Петрова", "Ивановна", "0101123456", "01/12/1990",
		"show",
		"/save sort",
		"",
		"save",
		filepath.Join(dir, "plain.csv"),
		"/exit",
	}, "\n") + "\n"

	out := runConsole(t, app, input)

	assert.Contains(t, out, "Added: Сидоров Иван , passport: 4510123456, birth: 1985-03-14")
	assert.Contains(t, out, "2. Петрова Анна Ивановна, passport: 0101123456, birth: 1990-12-01")
	assert.Contains(t, out, "Saved 2 subjects to "+filepath.Join(dir, "export.csv"))
	assert.True(t, strings.HasSuffix(out, "Exit\n"))

	sorted, err := os.ReadFile(filepath.Join(dir, "export.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(sorted), "Петрова;"))

	plain, err := os.ReadFile(filepath.Join(dir, "plain.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(plain), "Сидоров;"))
}

func TestConsole_ValidationErrorKeepsRunning(t *testing.T) {
	app, _ := newTestApp(t)

	input := "new\nIvan\nПетров\n\n4510123456\n14.03.1985\nshow\nexit\n"
	out := runConsole(t, app, input)

	assert.Contains(t, out, "  - incorrect first name")
	assert.Contains(t, out, "Error: First name is not valid (Code: VAL003)")
	assert.Contains(t, out, "No subjects.")
	assert.Empty(t, app.Subjects())
}

func TestConsole_SaveFailureReported(t *testing.T) {
	app, dir := newTestApp(t)

	input := "save\n" + filepath.Join(dir, "missing", "x.csv") + "\nexit\n"
	out := runConsole(t, app, input)

	assert.Contains(t, out, "(Code: FILE001)")
}

func TestConsole_UnknownCommandAndHelp(t *testing.T) {
	app, _ := newTestApp(t)

	out := runConsole(t, app, "frobnicate\n/help\n")

	assert.Contains(t, out, `Unknown command "frobnicate"`)
	for _, name := range []string{"help", "exit", "new", "show", "save", "save-sort"} {
		assert.Contains(t, out, name)
	}
}

func TestConsole_EndOfInput(t *testing.T) {
	app, _ := newTestApp(t)

	// Input ends in the middle of a new subject.
	out := runConsole(t, app, "new\nИван\n")
	assert.Contains(t, out, "enter surname: ")
	assert.Empty(t, app.Subjects())
}

func TestConsole_CancelUnblocksPrompt(t *testing.T) {
	app, _ := newTestApp(t)

	// The pipe is never written, so the scan blocks like an idle terminal.
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	var out safeBuffer
	c := NewConsole(app, pr, &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), ">> ")
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// safeBuffer is a bytes.Buffer shared between the console goroutine and the test.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
