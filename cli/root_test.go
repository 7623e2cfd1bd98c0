package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lguibr/gonwayish/geometry"
	"github.com/lguibr/gonwayish/seed"
	"github.com/lguibr/gonwayish/server"
	"github.com/lguibr/gonwayish/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "width: 12\nheight: 9\ndensity: 0.5\nlifePeriod: 3s\n")

	opts := &options{}
	runCmd, _, err := newRootCommand(opts).Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, runCmd.ParseFlags([]string{"--config", path, "--height", "7"}))

	cfg, err := opts.loadConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Width, "from file")
	assert.Equal(t, 7, cfg.Height, "flag wins")
	assert.Equal(t, 0.5, cfg.Density, "from file, flag not set")
	assert.Equal(t, 3*time.Second, cfg.LifePeriod)
}

func TestInitialState_Precedence(t *testing.T) {
	torus, err := geometry.NewTorus(9, 9)
	require.NoError(t, err)
	countAlive := func(f seed.Func) int {
		n := 0
		for _, p := range torus.AllPositions() {
			if f(p) {
				n++
			}
		}
		return n
	}

	cfg := utils.DefaultConfig()
	cfg.Density = 1
	random, err := initialState(cfg, torus)
	require.NoError(t, err)
	assert.Equal(t, torus.Size(), countAlive(random))

	cfg.Pattern = "glider"
	glider, err := initialState(cfg, torus)
	require.NoError(t, err)
	assert.Equal(t, 5, countAlive(glider))

	cfg.PatternFile = writeFile(t, "blinker.cells", "!Name: Blinker\nOOO\n")
	blinker, err := initialState(cfg, torus)
	require.NoError(t, err)
	assert.Equal(t, 3, countAlive(blinker))

	cfg.PatternFile = filepath.Join(t.TempDir(), "missing.cells")
	_, err = initialState(cfg, torus)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunCommand_DrawsFrames(t *testing.T) {
	out, err := executeRoot(t, "run",
		"--width", "6", "--height", "4", "--pattern", "blinker",
		"--duration", "250ms", "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "alive ")
	assert.Contains(t, out, "/24 (")
	firstFrame := strings.SplitN(out, "alive", 2)[0]
	assert.Len(t, strings.Split(strings.TrimSuffix(firstFrame, "\n"), "\n"), 4, "one line per row")
}

func TestRunCommand_WritesStats(t *testing.T) {
	stats := filepath.Join(t.TempDir(), "stats.csv")
	config := writeFile(t, "config.yaml", "statsFile: "+stats+"\nstatsInterval: 20ms\nrenderInterval: 50ms\n")

	_, err := executeRoot(t, "run", "--config", config, "--width", "5", "--height", "5",
		"--duration", "150ms", "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(stats)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "timestamp,elapsed_ms,alive,total,ratio,mean_age_ms", lines[0])
	assert.GreaterOrEqual(t, len(lines), 3)
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	_, err := executeRoot(t, "run", "--width", "2", "--duration", "10ms")
	assert.ErrorIs(t, err, utils.ErrInvalidConfig)

	_, err = executeRoot(t, "run", "--pattern", "nope", "--duration", "10ms", "--log-level", "error")
	assert.ErrorIs(t, err, seed.ErrUnknownPattern)
}

func TestWriteRemoteFrame(t *testing.T) {
	var out bytes.Buffer
	msg := server.SnapshotMessage{Width: 3, Height: 1, Alive: 2, Cells: [][]bool{{true, false, true}}}
	require.NoError(t, writeRemoteFrame(&out, msg))
	assert.Equal(t, "█·█\nalive 2/3 (66.7%)\n", out.String())
}
