package commands_test

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/chaintracker/chain-tracker/cmd/chain-tracker/commands"
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/chaintracker/chain-tracker/internal/runner"
	"github.com/chaintracker/chain-tracker/internal/store"
	"github.com/chaintracker/chain-tracker/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dirs struct {
	data, logs, config string
}

func newDirs(t *testing.T) dirs {
	t.Helper()

	root := t.TempDir()
	d := dirs{
		data:   filepath.Join(root, "data"),
		logs:   filepath.Join(root, "logs"),
		config: filepath.Join(root, "config"),
	}
	for _, dir := range []string{d.data, d.logs, d.config} {
		require.NoError(t, os.MkdirAll(dir, 0750), "Setup: could not create directory")
	}
	return d
}

func (d dirs) args(args ...string) []string {
	return append(args, "--data-dir", d.data, "--logs-dir", d.logs, "--config-dir", d.config, "--env-file", "")
}

func newApp(t *testing.T, args ...string) (*commands.App, *bytes.Buffer) {
	t.Helper()

	a, err := commands.New()
	require.NoError(t, err, "Setup: New should not return an error")
	var out bytes.Buffer
	a.SetOutput(&out)
	a.SetArgs(args...)
	return a, &out
}

func TestVersion(t *testing.T) {
	a, out := newApp(t, "version")

	require.NoError(t, a.Run(), "Run should not return an error")
	assert.Equal(t, "chain-tracker\tDev\n", out.String())
}

func TestConfigArg(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("verbose: 1\nkeep-days: 3\nlisten-port: 6000\n"), 0600), "Setup: couldn't write config file")

	a, _ := newApp(t, "version", "--config", configPath)

	require.NoError(t, a.Run(), "Run should not return an error")
	assert.Equal(t, 1, a.Config().Verbosity)
	assert.Equal(t, 3, a.Config().KeepDays)
	assert.Equal(t, 6000, a.Config().Serve.ListenPort)
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("CHAIN_TRACKER_LISTEN_PORT", "6001")
	t.Setenv("CHAIN_TRACKER_READ_TIMEOUT", "1s")

	a, _ := newApp(t, "version")

	require.NoError(t, a.Run(), "Run should not return an error")
	assert.Equal(t, 6001, a.Config().Serve.ListenPort)
	assert.Equal(t, time.Second, a.Config().Serve.ReadTimeout)
}

func TestFREDAPIKeyFromDotEnv(t *testing.T) {
	t.Setenv("FRED_API_KEY", "")
	require.NoError(t, os.Unsetenv("FRED_API_KEY"), "Setup: could not unset FRED_API_KEY")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FRED_API_KEY=from-dotenv\n"), 0600), "Setup: couldn't write dotenv file")

	a, _ := newApp(t, "version", "--env-file", envFile)

	require.NoError(t, a.Run(), "Run should not return an error")
	assert.Equal(t, "from-dotenv", a.Config().FREDAPIKey)
}

func TestConfigBadArg(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "conf.yaml")

	a, _ := newApp(t, "version", "--config", configPath)

	require.Error(t, a.Run(), "Run should return an error on a missing configuration file")
}

func TestUsageError(t *testing.T) {
	a, _ := newApp(t, "doesnotexist")

	require.Error(t, a.Run(), "Run should return an error")
	require.True(t, a.UsageError(), "Usage error is reported as such")

	a.SetSilenceUsage(true)
	assert.False(t, a.UsageError())
}

func TestNoUsageError(t *testing.T) {
	a, _ := newApp(t, "completion", "bash")

	require.NoError(t, a.Run(), "Run should not return an error")
	require.False(t, a.UsageError(), "No usage error is reported as such")
}

func TestTrim(t *testing.T) {
	tests := map[string]struct {
		dates    []string
		keepDays string

		wantOut       string
		wantRemaining []string
	}{
		"Keeps the newest folders": {
			dates:         []string{"2025-03-10", "2025-03-11", "2025-03-12", "2025-03-13", "2025-03-14"},
			keepDays:      "2",
			wantOut:       "Deleted 3 old data folder(s).\n",
			wantRemaining: []string{"2025-03-13", "2025-03-14"},
		},
		"Keeps at least one folder": {
			dates:         []string{"2025-03-13", "2025-03-14"},
			keepDays:      "0",
			wantOut:       "Deleted 1 old data folder(s).\n",
			wantRemaining: []string{"2025-03-14"},
		},
		"Nothing to delete": {
			dates:         []string{"2025-03-14"},
			keepDays:      "21",
			wantOut:       "Deleted 0 old data folder(s).\n",
			wantRemaining: []string{"2025-03-14"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d := newDirs(t)
			for _, date := range tc.dates {
				require.NoError(t, os.MkdirAll(filepath.Join(d.data, date), 0750), "Setup: could not create date folder")
			}
			require.NoError(t, os.MkdirAll(filepath.Join(d.data, "community"), 0750), "Setup: could not create extra folder")

			a, out := newApp(t, d.args("trim", "--keep-days", tc.keepDays)...)
			require.NoError(t, a.Run(), "Run should not return an error")
			assert.Equal(t, tc.wantOut, out.String())

			got, err := store.New(d.data, testutils.DiscardLogger()).Dates()
			require.NoError(t, err, "Dates should be listed")
			assert.Equal(t, tc.wantRemaining, got)
			assert.DirExists(t, filepath.Join(d.data, "community"), "Other folders should be left untouched")
		})
	}
}

func TestPackage(t *testing.T) {
	tests := map[string]struct {
		date string

		wantErr bool
	}{
		"Packages a day": {date: "2025-03-14"},

		"Error on invalid date": {date: "14-03-2025", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d := newDirs(t)
			st := store.New(d.data, testutils.DiscardLogger())
			require.NoError(t, st.Save("2025-03-14", puller.Result{
				SourceID: "fx_rates_dolarhoy", PulledAt: "2025-03-14T12:00:00Z", Status: puller.StatusOK,
				Data: map[string]any{"dolar_blue_venta": 1250.0, "dolar_oficial_venta": 1000.0}, Errors: []string{},
			}), "Setup: could not save snapshot")

			a, out := newApp(t, d.args("package", "--date", tc.date)...)
			err := a.Run()
			if tc.wantErr {
				require.Error(t, err, "Run should return an error")
				assert.False(t, a.UsageError(), "A runtime error is not a usage error")
				return
			}
			require.NoError(t, err, "Run should not return an error")

			assert.Contains(t, out.String(), `"status": "ok"`)
			assert.Contains(t, out.String(), `"date": "2025-03-14"`)

			files, err := testutils.GetDirContents(t, d.data, 2)
			require.NoError(t, err, "Data folder should be readable")
			var names []string
			for name := range files {
				names = append(names, name)
			}
			assert.ElementsMatch(t, []string{
				"2025-03-14/fx_rates_dolarhoy.json",
				"2025-03-14/chain_analysis.json",
				"2025-03-14/daily_brief.md",
			}, names)
			assert.Contains(t, files["2025-03-14/daily_brief.md"], "Blue", "The brief should mention the blue rate")
		})
	}
}

func TestValidateFailsOnEmptyConfig(t *testing.T) {
	d := newDirs(t)

	a, out := newApp(t, d.args("validate")...)
	err := a.Run()

	require.ErrorIs(t, err, commands.ErrValidationFailed)
	assert.False(t, a.UsageError(), "A validation failure is not a usage error")
	assert.Contains(t, out.String(), "=== Config Validator ===")
	assert.Contains(t, out.String(), "FAILURES ===")
}

func TestPull(t *testing.T) {
	tests := map[string]struct {
		args []string

		wantErr    error
		wantOutput string
	}{
		"Error on unknown source":                 {args: []string{"--only", "nope"}, wantErr: runner.ErrUnknownSource},
		"Error on validation failure when gating": {args: []string{"--validate-first"}, wantErr: runner.ErrValidationFailed, wantOutput: "Validation failed. Pull run aborted.\n"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d := newDirs(t)

			a, out := newApp(t, d.args(append([]string{"pull"}, tc.args...)...)...)
			err := a.Run()

			require.ErrorIs(t, err, tc.wantErr)
			assert.False(t, a.UsageError(), "A runtime error is not a usage error")
			assert.Contains(t, out.String(), tc.wantOutput)
			dates, err := store.New(d.data, testutils.DiscardLogger()).Dates()
			require.NoError(t, err, "Dates should be listed")
			assert.Empty(t, dates, "Nothing should be pulled")
		})
	}
}

func TestServe(t *testing.T) {
	d := newDirs(t)
	port := testutils.GetFreePort(t, "127.0.0.1")

	a, _ := newApp(t, d.args("serve", "--listen-host", "127.0.0.1", "--listen-port", strconv.Itoa(port))...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run()
	}()
	a.WaitReady()

	url := fmt.Sprintf("http://127.0.0.1:%d/version", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond, "Dashboard should answer")

	a.Quit()
	require.NoError(t, <-errCh, "Run should return cleanly after Quit")
}

func TestAppCanSigHupAfterExecute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping Hup test on Windows")
	}
	r, w, err := os.Pipe()
	require.NoError(t, err, "Setup: pipe shouldn't fail")

	a, _ := newApp(t, "version")
	require.NoError(t, a.Run(), "Run should not return an error")

	orig := os.Stdout
	os.Stdout = w

	a.Hup()

	os.Stdout = orig
	w.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(r)
	require.NoError(t, err, "Couldn't copy stdout to buffer")
	require.NotEmpty(t, out.String(), "Stacktrace is printed")
}

func TestRootFlags(t *testing.T) {
	a, _ := newApp(t)
	root := a.RootCmd()

	for _, tc := range []testutils.CmdTestCase{
		{Name: "verbose", Short: "v", PersistentFlag: true, BaseCmd: &root},
		{Name: "data-dir", Dirname: true, PersistentFlag: true, BaseCmd: &root},
		{Name: "logs-dir", Dirname: true, PersistentFlag: true, BaseCmd: &root},
		{Name: "config-dir", Dirname: true, PersistentFlag: true, BaseCmd: &root},
		{Name: "json-logs", PersistentFlag: true, BaseCmd: &root},
	} {
		testutils.FlagTestHelper(t, tc)
	}
}
