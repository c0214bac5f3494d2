// Copyright  Project Contour Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.  You may obtain
// a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the
// License for the specific language governing permissions and limitations
// under the License.

package cmd

import (
	"fmt"

	"github.com/Conshmea/EddnRelay/pkg/version"

	"github.com/spf13/cobra"
)

// ExitCode is a process exit code suitable for use with os.Exit.
type ExitCode int

const (
	// EX_FAIL is the exit code for any unhandled startup or runtime
	// error, per spec.md's "0 on clean shutdown, 1 on unhandled
	// startup or runtime error" — this domain recognizes no finer
	// exit-code taxonomy than that.
	EX_FAIL ExitCode = 1 //nolint(golint)
)

// ExitError captures an ExitCode and its associated error message.
type ExitError struct {
	Code ExitCode
	Err  error
}

func (e ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return ""
}

// ExitErrorf formats and error message along with the ExitCode.
func ExitErrorf(code ExitCode, format string, args ...interface{}) error {
	return &ExitError{
		Code: code,
		Err:  fmt.Errorf(format, args...),
	}
}

// CommandWithDefaults overwrites default values in the given command.
func CommandWithDefaults(c *cobra.Command) *cobra.Command {
	c.SilenceUsage = true
	c.SilenceErrors = true
	c.DisableFlagsInUseLine = true

	return c
}

// NewRootCommand represents the base command when called without any subcommands
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   version.Progname,
		Short: "Ingest the EDDN event stream and relay it to subscribers",
		Long: `eddn-relay ingests a compressed public event stream, evaluates
each event against per-subscriber predicate trees, and fans matching
events out in real time over a WebSocket channel. It optionally
retains events for a bounded window and serves historical queries
over the same predicate language.`,
		Version: fmt.Sprintf("%s/%s, built %s", version.Version, version.Sha, version.BuildDate),
	}

	root.AddCommand(NewServeCommand())

	return CommandWithDefaults(root)
}
