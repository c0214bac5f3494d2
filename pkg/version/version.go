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

// Package version holds build-time identifying information. Version,
// Sha and BuildDate are meant to be set with `-ldflags -X`.
package version

// Progname is the program name, used as the root command's name and
// as the prefix of error messages printed on exit.
const Progname = "eddn-relay"

var (
	// Version is the relay's release version.
	Version = "dev"

	// Sha is the git commit the binary was built from.
	Sha = "none"

	// BuildDate is when the binary was built.
	BuildDate = "unknown"
)
