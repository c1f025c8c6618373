package pgsource

import (
	"context"
	"fmt"

	shopspring_numeric "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newPool builds a pgxpool sized to cfg.NConn, applying connect/statement
// timeouts and the application name every connection reports to the server.
func newPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, poolErr("parse pool config", err)
	}
	pcfg.MaxConns = int32(cfg.NConn)
	pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	if pcfg.ConnConfig.RuntimeParams == nil {
		pcfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	pcfg.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	pcfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	pcfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		shopspring_numeric.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, poolErr("pgxpool new", err)
	}
	return pool, nil
}
