package main

import (
	"errors"
	"os"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	done            chan struct{}
	runError        bool
	userErrorReturn bool
	hupReturn       bool
}

func (a *testApp) Run() error {
	<-a.done
	if a.runError {
		return errors.New("run error!")
	}
	return nil
}

func (a testApp) UsageError() bool {
	return a.userErrorReturn
}

func (a testApp) Hup() bool {
	return a.hupReturn
}

func (a *testApp) Quit() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		runError   bool
		usageError bool

		wantReturnCode int
	}{
		"Run and exit successfully":                        {},
		"Run and exit error":                               {runError: true, wantReturnCode: 1},
		"Run and exit with usage error":                    {usageError: true, runError: true, wantReturnCode: 2},
		"Run and return with usage error but no run error": {usageError: true, wantReturnCode: 0},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a := testApp{
				done:            make(chan struct{}),
				runError:        tc.runError,
				userErrorReturn: tc.usageError,
			}

			var rc int
			wait := make(chan struct{})
			go func() {
				rc = run(&a)
				close(wait)
			}()

			time.Sleep(100 * time.Millisecond)

			a.Quit()
			<-wait

			assert.Equal(t, tc.wantReturnCode, rc, "Unexpected return code")
		})
	}
}

func TestSignalHandler(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Signals are not supported on Windows")
	}

	tests := map[string]struct {
		sig       syscall.Signal
		hupReturn bool

		wantQuit bool
	}{
		"SIGINT quits":                        {sig: syscall.SIGINT, wantQuit: true},
		"SIGTERM quits":                       {sig: syscall.SIGTERM, wantQuit: true},
		"SIGHUP quits when asked to":          {sig: syscall.SIGHUP, hupReturn: true, wantQuit: true},
		"SIGHUP does not quit when not asked": {sig: syscall.SIGHUP},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			a := testApp{done: make(chan struct{}), hupReturn: tc.hupReturn}

			cleanup := installSignalHandler(&a)
			defer cleanup()

			p, err := os.FindProcess(os.Getpid())
			require.NoError(t, err, "Setup: could not find own process")
			require.NoError(t, p.Signal(tc.sig), "Setup: could not send signal")

			select {
			case <-a.done:
				require.True(t, tc.wantQuit, "App should not have been asked to quit")
			case <-time.After(200 * time.Millisecond):
				require.False(t, tc.wantQuit, "App should have been asked to quit")
			}
		})
	}
}
