package report

import (
	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/types"
)

// Process exit codes
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitConfig  = 2
	ExitAborted = 130
)

// ExitCode maps the outcome of a run to a process exit code. err is the
// error returned by the executor, if any; a configuration error means no
// task ran.
func ExitCode(report *types.RunReport, err error) int {
	if err != nil {
		if errors.IsConfigError(err) {
			return ExitConfig
		}
		return ExitFailed
	}
	if report == nil {
		return ExitFailed
	}
	if report.Aborted {
		return ExitAborted
	}
	if report.HasFailures() {
		return ExitFailed
	}
	return ExitOK
}
