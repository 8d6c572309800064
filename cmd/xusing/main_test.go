package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"XUSING_INTERVAL", "XUSING_SUSPEND", "XUSING_DISPLAY", "XUSING_FILE",
		"XUSING_ECHO", "XUSING_DB_PATH", "XUSING_PID_FILE", "XUSING_LOG_LEVEL",
		"XUSING_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("XUSING_CONFIG", path)
	return path
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "xusing version "+version))
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateConfig(t)
	f := &flags{}
	cmd := newRootCmdWithFlags(f)
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := loadConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Monitor.SuspendMinutes)
	assert.Equal(t, 5, cfg.Monitor.IntervalSeconds)
	assert.Equal(t, "~/.logs/xusing.log", cfg.Recorder.File)
	assert.True(t, cfg.Recorder.Echo)
}

func TestLoadConfigFlagPrecedence(t *testing.T) {
	path := isolateConfig(t)
	require.NoError(t, os.WriteFile(path, []byte("[monitor]\nsuspend_minutes = 30\ninterval_seconds = 10\n"), 0o644))
	t.Setenv("XUSING_INTERVAL", "20")

	f := &flags{}
	cmd := newRootCmdWithFlags(f)
	require.NoError(t, cmd.ParseFlags([]string{"-s", "2", "-f", "/tmp/usage.log", "--echo=false"}))

	cfg, err := loadConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Monitor.SuspendMinutes, "flag beats file")
	assert.Equal(t, 20, cfg.Monitor.IntervalSeconds, "env beats file when no flag is set")
	assert.Equal(t, "/tmp/usage.log", cfg.Recorder.File)
	assert.False(t, cfg.Recorder.Echo)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	isolateConfig(t)
	f := &flags{}
	cmd := newRootCmdWithFlags(f)
	require.NoError(t, cmd.ParseFlags([]string{"--interval", "0"}))

	_, err := loadConfig(cmd, f)
	assert.Error(t, err)
}

func TestRootRejectsArgs(t *testing.T) {
	isolateConfig(t)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"unexpected"})

	assert.Error(t, cmd.Execute())
}

func TestLogFileFlag(t *testing.T) {
	isolateConfig(t)
	t.Setenv("XUSING_LOG_FILE", "/var/tmp/from-env.log")
	f := &flags{}
	cmd := newRootCmdWithFlags(f)
	require.NoError(t, cmd.ParseFlags([]string{"--log-file", "/var/tmp/from-flag.log"}))

	cfg, err := loadConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp/from-flag.log", cfg.Log.File)
}

func TestOpenDaemonLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "xusing.err")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("earlier run\n"), 0644))

	f, err := openDaemonLog(path)
	require.NoError(t, err)
	_, err = f.WriteString("fatal: no display\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "earlier run\nfatal: no display\n", string(data))

	f, err = openDaemonLog(filepath.Join(t.TempDir(), "new", "dir", "xusing.err"))
	require.NoError(t, err)
	f.Close()
}

func TestAwaitStartup(t *testing.T) {
	t.Run("Child exits early", func(t *testing.T) {
		err := awaitStartup(func() error { return errors.New("exit status 1") }, time.Second)
		assert.EqualError(t, err, "exit status 1")
	})

	t.Run("Clean early exit still fails", func(t *testing.T) {
		assert.Error(t, awaitStartup(func() error { return nil }, time.Second))
	})

	t.Run("Child keeps running", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)
		err := awaitStartup(func() error {
			<-block
			return nil
		}, 50*time.Millisecond)
		assert.NoError(t, err)
	})
}
