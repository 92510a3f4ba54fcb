package commands

import "io"

type AppConfig = appConfig

var ErrValidationFailed = errValidationFailed

// SetArgs sets the arguments for the command.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetOutput redirects the command output.
func (a *App) SetOutput(w io.Writer) {
	a.cmd.SetOut(w)
	a.cmd.SetErr(io.Discard)
}

// Config returns the configuration of the app.
func (a App) Config() AppConfig {
	return a.config
}

// SetSilenceUsage sets the SilenceUsage field of the command.
func (a *App) SetSilenceUsage(silence bool) {
	a.cmd.SilenceUsage = silence
}
