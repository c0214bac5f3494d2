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
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/Conshmea/EddnRelay/pkg/config"
	"github.com/Conshmea/EddnRelay/pkg/driver"
	"github.com/Conshmea/EddnRelay/pkg/ingest"
	"github.com/Conshmea/EddnRelay/pkg/relay"
	"github.com/Conshmea/EddnRelay/pkg/retention"
	"github.com/Conshmea/EddnRelay/pkg/status"
	"github.com/Conshmea/EddnRelay/pkg/transport"
	"github.com/Conshmea/EddnRelay/pkg/utils"
)

// NewServeCommand builds the `serve` subcommand, which wires
// configuration, the Ingestor, the Relay, the optional Retention
// Store, and the Transport Surface together and runs them until
// signalled to stop.
func NewServeCommand() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay: ingest the upstream event stream and serve subscribers",
		RunE: func(c *cobra.Command, args []string) error {
			return runServe(context.Background())
		},
	}

	return CommandWithDefaults(serve)
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return &ExitError{Code: EX_FAIL, Err: status.Wrap(status.Configuration, err)}
	}

	log := logrus.NewEntry(config.NewLogger(cfg.LogLevel))
	logrus.SetLevel(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	upstream, err := driver.DialUpstream(cfg.UpstreamURL)
	if err != nil {
		return &ExitError{Code: EX_FAIL, Err: status.Wrap(status.Configuration, err)}
	}

	var store retention.Store
	var mongoStore *driver.MongoStore

	if cfg.UseStore {
		ms, err := connectRetention(ctx, cfg)
		if err != nil {
			return &ExitError{Code: EX_FAIL, Err: status.Wrap(status.Configuration, err)}
		}

		if err := ms.Initialize(ctx); err != nil {
			return &ExitError{Code: EX_FAIL, Err: status.Wrap(status.Retention, err)}
		}

		mongoStore = ms
		store = ms
	}

	r := relay.New(log.WithField("component", "relay"))

	var ingestRetention ingest.RetentionSink
	if store != nil {
		ingestRetention = store
	}

	ingestor := ingest.New(upstream, cfg.UpstreamTimeout, r, ingestRetention, log.WithField("component", "ingest"))

	server := transport.NewServer(
		net.JoinHostPort(cfg.RelayHost, fmt.Sprintf("%d", cfg.RelayPort)),
		r,
		store,
		log.WithField("component", "transport"),
	)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := ingestor.Run(gctx); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		if err := server.Run(gctx); err != nil {
			return fmt.Errorf("transport: %w", err)
		}

		return nil
	})

	runErr := group.Wait()

	var shutdownErrs []error

	if runErr != nil {
		shutdownErrs = append(shutdownErrs, runErr)
	}

	// ingestor.Run closes the upstream on return; a second close is not
	// a shutdown failure.
	if err := upstream.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("closing upstream connection: %w", err))
	}

	if mongoStore != nil {
		if err := mongoStore.Close(context.Background()); err != nil {
			shutdownErrs = append(shutdownErrs, fmt.Errorf("closing retention backend: %w", err))
		}
	}

	switch len(shutdownErrs) {
	case 0:
		return nil
	case 1:
		return &ExitError{Code: EX_FAIL, Err: shutdownErrs[0]}
	default:
		return &ExitError{Code: EX_FAIL, Err: utils.ChainErrors(shutdownErrs...)}
	}
}

func connectRetention(ctx context.Context, cfg *config.Config) (*driver.MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.StoreURI))
	if err != nil {
		return nil, fmt.Errorf("connecting to retention backend: %w", err)
	}

	return driver.NewMongoStore(client, cfg.StoreDatabase, cfg.CacheTTL), nil
}
