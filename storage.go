package clnet

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/q2net/clnet/netadr"
)

// A ServerEntry is a server that answered a status request.
type ServerEntry struct {
	Addr     string
	Info     string
	LastSeen time.Time
}

// A Browser remembers the status replies of servers.
// It stores them in SQLite, or in PostgreSQL if the data source
// is a postgres:// URL.
type Browser struct {
	db *sqlx.DB
}

type serverRow struct {
	Addr     string `db:"addr"`
	Info     string `db:"info"`
	LastSeen int64  `db:"last_seen"`
}

const browserTable = `CREATE TABLE IF NOT EXISTS servers (
	addr VARCHAR(64) PRIMARY KEY NOT NULL,
	info VARCHAR(2048) NOT NULL,
	last_seen BIGINT NOT NULL
);`

// OpenBrowser opens the server list at source and creates
// its table if needed.
func OpenBrowser(source string) (*Browser, error) {
	driver := "sqlite3"
	if strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://") {
		driver = "postgres"
	} else if dir := filepath.Dir(source); dir != "" {
		if err := os.MkdirAll(dir, 0775); err != nil {
			return nil, errors.Wrapf(err, "create %s failed", dir)
		}
	}

	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, errors.Wrap(err, "open server list failed")
	}

	if _, err := db.Exec(browserTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create servers table failed")
	}

	return &Browser{db: db}, nil
}

// Close closes the database.
func (b *Browser) Close() error { return b.db.Close() }

// Record stores the status info of the server at addr.
func (b *Browser) Record(addr, info string, seen time.Time) error {
	query := b.db.Rebind(`INSERT INTO servers (addr, info, last_seen) VALUES (?, ?, ?)
	ON CONFLICT (addr) DO UPDATE SET info = excluded.info, last_seen = excluded.last_seen;`)

	stmt, err := b.db.Preparex(query)
	if err != nil {
		return errors.Wrap(err, "prepare server insert failed")
	}
	defer stmt.Close()

	if _, err := stmt.Exec(addr, info, seen.UnixNano()); err != nil {
		return errors.Wrapf(err, "store server %s failed", addr)
	}

	return nil
}

// Servers returns the known servers, most recently seen first.
func (b *Browser) Servers() ([]ServerEntry, error) {
	var rows []serverRow
	if err := b.db.Select(&rows, `SELECT addr, info, last_seen FROM servers ORDER BY last_seen DESC, addr;`); err != nil {
		return nil, errors.Wrap(err, "query servers failed")
	}

	servers := make([]ServerEntry, 0, len(rows))
	for _, r := range rows {
		servers = append(servers, ServerEntry{
			Addr:     r.Addr,
			Info:     r.Info,
			LastSeen: time.Unix(0, r.LastSeen),
		})
	}

	return servers, nil
}

// Forget removes a server from the list.
func (b *Browser) Forget(addr string) error {
	_, err := b.db.Exec(b.db.Rebind(`DELETE FROM servers WHERE addr = ?;`), addr)
	return errors.Wrapf(err, "delete server %s failed", addr)
}

// Attach makes c record every status reply in b.
func (b *Browser) Attach(c *Client) {
	c.RegisterOnStatusMessage(func(c *Client, from netadr.Addr, info string) {
		if err := b.Record(from.String(), info, time.Now()); err != nil {
			c.log.WithError(err).Warn("record server failed")
		}
	})

	c.console.Register("servers", "list the servers that answered pingservers", func(Args) {
		servers, err := b.Servers()
		if err != nil {
			c.log.WithError(err).Error("list servers failed")
			return
		}

		for _, s := range servers {
			c.Printf("%s %s\n", s.Addr, s.Info)
		}
	})
}
