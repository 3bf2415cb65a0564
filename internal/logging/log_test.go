package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"papertrade/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("writes to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "papertrade.log")
		logger, closeLog, err := New(config.LogConfig{Level: "info", File: path})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Debug("hidden")
		logger.Info("trade_executed")
		if err := closeLog(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		out := string(data)
		if !strings.Contains(out, `"msg":"trade_executed"`) {
			t.Errorf("log file missing info entry: %s", out)
		}
		if !strings.Contains(out, `"level":"INFO"`) {
			t.Errorf("log file missing capital level: %s", out)
		}
		if strings.Contains(out, "hidden") {
			t.Errorf("debug entry written at info level: %s", out)
		}
	})

	t.Run("file closed after close", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "papertrade.log")
		_, closeLog, err := New(config.LogConfig{Level: "info", File: path})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if err := closeLog(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if err := closeLog(); err == nil {
			t.Error("second close should report the file already closed")
		}
	})

	t.Run("console output goes to stderr", func(t *testing.T) {
		dir := t.TempDir()
		stdout, err := os.Create(filepath.Join(dir, "stdout"))
		if err != nil {
			t.Fatal(err)
		}
		stderr, err := os.Create(filepath.Join(dir, "stderr"))
		if err != nil {
			t.Fatal(err)
		}
		origOut, origErr := os.Stdout, os.Stderr
		os.Stdout, os.Stderr = stdout, stderr
		defer func() {
			os.Stdout, os.Stderr = origOut, origErr
			stdout.Close()
			stderr.Close()
		}()

		logger, closeLog, err := New(config.LogConfig{Level: "info"})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Info("opened ledger")
		closeLog()

		outData, _ := os.ReadFile(stdout.Name())
		errData, _ := os.ReadFile(stderr.Name())
		if len(outData) != 0 {
			t.Errorf("stdout = %q, want empty", outData)
		}
		if !strings.Contains(string(errData), `"msg":"opened ledger"`) {
			t.Errorf("stderr missing entry: %q", errData)
		}
	})

	t.Run("bad level", func(t *testing.T) {
		if _, _, err := New(config.LogConfig{Level: "loud"}); err == nil {
			t.Error("expected error for unknown level")
		}
	})
}
