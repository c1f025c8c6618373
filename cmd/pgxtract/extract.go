// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT
//
// Drives a pgsource.Source end to end and streams decoded rows to stdout.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dataxfer/pgsource"
	"github.com/dataxfer/pgsource/internal/config"
	"github.com/dataxfer/pgsource/internal/fanout"
	"github.com/dataxfer/pgsource/internal/logging"
)

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	logger = logging.WithComponent(logger, "pgxtract")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	protocol, err := parseProtocol(cfg.Protocol)
	if err != nil {
		return err
	}

	psCfg := pgsource.Config{
		DSN:              cfg.DSN,
		NConn:            cfg.NConn,
		ConnectTimeout:   time.Duration(cfg.ConnectTimeoutSeconds) * time.Second,
		StatementTimeout: time.Duration(cfg.StatementTimeoutMs) * time.Millisecond,
		AppName:          cfg.AppName,
		BufferSize:       cfg.BufferSize,
	}

	logger.Info("connecting",
		logging.FieldDSN("dsn", cfg.DSN),
		zap.String("protocol", protocol.String()),
		zap.Int("nconn", cfg.NConn),
	)

	source, err := pgsource.NewSource(ctx, psCfg)
	if err != nil {
		return err
	}
	defer source.Close()

	source.SetQueries(buildQueries(cfg))
	if cfg.Query != "" {
		oq := pgsource.Raw(cfg.Query)
		source.SetOriginQuery(&oq)
	}

	if err := source.FetchMetadata(ctx); err != nil {
		return err
	}
	names := source.Names()
	schema := source.Schema()

	if n, err := source.ResultRows(ctx); err != nil {
		logger.Warn("result row count unavailable",
			zap.Error(err),
			zap.String("sqlstate", pgsource.SQLState(err)),
		)
	} else if n != nil {
		logger.Info("result row count", zap.Int("rows", *n))
	}

	partitions, err := source.Partition(ctx, protocol)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range partitions {
			p.Close()
		}
	}()

	w := newRowWriter(os.Stdout, cfg.Output, names)

	_, err = fanout.RunIndexed(ctx, partitions, func(ctx context.Context, idx int, part *pgsource.Partition) (struct{}, error) {
		plog := logging.WithPartition(logger, idx)
		return struct{}{}, drainPartition(ctx, part, schema, w, plog)
	})
	return err
}

// buildQueries returns one Query per --partitions entry, or a single Query
// running --query when no per-partition overrides were given.
func buildQueries(cfg config.Config) []pgsource.Query {
	if len(cfg.Partitions) == 0 {
		return []pgsource.Query{pgsource.Raw(cfg.Query)}
	}
	queries := make([]pgsource.Query, len(cfg.Partitions))
	for i, sql := range cfg.Partitions {
		queries[i] = pgsource.Raw(sql)
	}
	return queries
}

func parseProtocol(s string) (pgsource.Protocol, error) {
	switch s {
	case "binary":
		return pgsource.ProtocolBinary, nil
	case "csv":
		return pgsource.ProtocolCSV, nil
	case "cursor":
		return pgsource.ProtocolCursor, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q", s)
	}
}

// drainPartition walks one Partition's Parser to completion, writing each
// decoded row through w. It owns the Parser for its entire lifetime; the
// Partition itself is closed by the caller once every partition finishes.
func drainPartition(ctx context.Context, part *pgsource.Partition, schema pgsource.Schema, w *rowWriter, logger *zap.Logger) error {
	logErr := func(msg string, err error) error {
		logger.Error(msg,
			zap.Error(err),
			zap.String("sqlstate", pgsource.SQLState(err)),
			zap.Bool("connection_issue", pgsource.IsConnectionIssue(err)),
		)
		return err
	}

	parser, err := part.Parser(ctx)
	if err != nil {
		return logErr("open parser", err)
	}

	total := 0
	for {
		n, isLast, err := parser.FetchNext()
		if err != nil {
			return logErr("fetch batch", err)
		}
		for i := 0; i < n; i++ {
			row := make([]any, len(schema))
			for col := range schema {
				v, err := produceCell(parser, schema[col])
				if err != nil {
					return logErr("decode cell", err)
				}
				row[col] = v
				parser.Next()
			}
			if err := w.WriteRow(row); err != nil {
				return logErr("write row", err)
			}
		}
		total += n
		if isLast {
			break
		}
	}
	logger.Debug("partition drained", zap.Int("rows", total))
	return nil
}
