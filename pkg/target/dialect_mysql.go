package target

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

const defaultMySQLPort = 3306

type mysqlDialect struct{}

func init() {
	registerDialect(mysqlDialect{})
}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) DSN(p Params, withDatabase bool) string {
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.Net = "tcp"

	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = defaultMySQLPort
	}
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))

	if withDatabase {
		cfg.DBName = p.Database
	}
	cfg.Timeout = 5 * time.Second
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Params = map[string]string{
		"charset": "utf8mb4",
	}

	return cfg.FormatDSN()
}

func (mysqlDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) ListTablesQuery() string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE()"
}

func (mysqlDialect) ListColumnsQuery() string {
	return "SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position"
}

func (mysqlDialect) Syntax() SQLSyntax {
	return SQLSyntax{HashComments: true, DashNeedsSpace: true, BackslashEscapes: true}
}

func (d mysqlDialect) CreateDatabaseStatement(name string) string {
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s COLLATE 'utf8mb4_unicode_ci'", d.QuoteIdent(name))
}
