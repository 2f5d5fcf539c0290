package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingFileWrite(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	w, err := OpenRotatingFile(logFile, 1024, 3)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer w.Close()

	data := []byte("This is a test log message\n")
	n, err := w.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("Write returned %d, want %d", n, len(data))
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content = %q, want %q", content, data)
	}
}

func TestRotatingFileAppendsToExisting(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(logFile, []byte("previous\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := OpenRotatingFile(logFile, 1024, 3)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	if w.written != int64(len("previous\n")) {
		t.Errorf("written = %d, want existing size", w.written)
	}
	_, _ = w.Write([]byte("next\n"))
	_ = w.Close()

	content, _ := os.ReadFile(logFile)
	if string(content) != "previous\nnext\n" {
		t.Errorf("Content = %q", content)
	}
}

func TestRotatingFileRotation(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	w, err := OpenRotatingFile(logFile, 20, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer w.Close()

	for i := 0; i < 4; i++ {
		line := strings.Repeat(string(rune('a'+i)), 15) + "\n"
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}

	tests := []struct {
		path string
		want string
	}{
		{logFile, strings.Repeat("d", 15) + "\n"},
		{logFile + ".1", strings.Repeat("c", 15) + "\n"},
		{logFile + ".2", strings.Repeat("b", 15) + "\n"},
	}
	for _, tt := range tests {
		content, err := os.ReadFile(tt.path)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", tt.path, err)
		}
		if string(content) != tt.want {
			t.Errorf("%s = %q, want %q", tt.path, content, tt.want)
		}
	}

	if _, err := os.Stat(logFile + ".3"); !os.IsNotExist(err) {
		t.Errorf("Expected no third backup, stat err = %v", err)
	}
}

func TestRotatingFileNoBackups(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	w, err := OpenRotatingFile(logFile, 10, 0)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer w.Close()

	_, _ = w.Write([]byte("first line\n"))
	_, _ = w.Write([]byte("second\n"))

	content, _ := os.ReadFile(logFile)
	if string(content) != "second\n" {
		t.Errorf("Content = %q, want only the latest write", content)
	}
	if _, err := os.Stat(logFile + ".1"); !os.IsNotExist(err) {
		t.Error("Expected no backup with maxBackups 0")
	}
}

func TestRotatingFileOversizedWrite(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	w, err := OpenRotatingFile(logFile, 5, 1)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("longer than the limit\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(logFile + ".1"); !os.IsNotExist(err) {
		t.Error("An empty file must not be rotated")
	}
}

func TestRotatingFileClosed(t *testing.T) {
	w, err := OpenRotatingFile(filepath.Join(t.TempDir(), "test.log"), 100, 1)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if _, err := w.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Write after Close error = %v, want os.ErrClosed", err)
	}
}
