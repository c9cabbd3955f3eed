package dump

import (
	"encoding/json"
	"fmt"
	"os"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE blocks (
    block INTEGER PRIMARY KEY,
    iterations INTEGER NOT NULL,
    entry TEXT NOT NULL,
    exit TEXT NOT NULL
);

CREATE TABLE instructions (
    block INTEGER NOT NULL,
    statement INTEGER NOT NULL,
    instruction TEXT NOT NULL,
    data TEXT NOT NULL,
    PRIMARY KEY (block, statement)
);

CREATE TABLE successors (
    from_block INTEGER NOT NULL,
    to_block INTEGER NOT NULL,
    actions TEXT NOT NULL,
    PRIMARY KEY (from_block, to_block)
);

CREATE TABLE iterations (
    block INTEGER NOT NULL,
    iteration INTEGER NOT NULL,
    entry TEXT NOT NULL,
    PRIMARY KEY (block, iteration)
);

CREATE TABLE reports (
    id INTEGER PRIMARY KEY,
    phase TEXT NOT NULL,
    rule TEXT NOT NULL,
    message TEXT NOT NULL
);
`

// Store writes dumps into a SQLite database.
type Store struct {
	conn *sqlite.Conn
}

// OpenStore creates a database at the path, replacing an existing one.
func OpenStore(path string) (*Store, error) {
	_ = os.Remove(path)

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA synchronous = NORMAL", nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Write saves data in a single transaction.
func (s *Store) Write(data *Data) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	if err := s.insert(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, "name", data.Name); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	for _, b := range data.Blocks {
		entry, err := jsonText(b.Entry)
		if err != nil {
			return err
		}
		exit, err := jsonText(b.Exit)
		if err != nil {
			return err
		}
		if err := s.insert(`INSERT INTO blocks (block, iterations, entry, exit) VALUES (?, ?, ?, ?)`, b.Block, b.Iterations, entry, exit); err != nil {
			return fmt.Errorf("insert block %d: %w", b.Block, err)
		}
	}

	for _, ins := range data.Instructions {
		text, err := jsonText(ins)
		if err != nil {
			return err
		}
		const q = `INSERT INTO instructions (block, statement, instruction, data) VALUES (?, ?, ?, ?)`
		if err := s.insert(q, ins.Block, ins.Statement, ins.Instruction, text); err != nil {
			return fmt.Errorf("insert instruction bb%d[%d]: %w", ins.Block, ins.Statement, err)
		}
	}

	for _, succ := range data.Successors {
		text, err := jsonText(succ.Actions)
		if err != nil {
			return err
		}
		const q = `INSERT INTO successors (from_block, to_block, actions) VALUES (?, ?, ?)`
		if err := s.insert(q, succ.From, succ.To, text); err != nil {
			return fmt.Errorf("insert successor bb%d->bb%d: %w", succ.From, succ.To, err)
		}
	}

	for _, it := range data.Iterations {
		text, err := jsonText(it.Entry)
		if err != nil {
			return err
		}
		const q = `INSERT INTO iterations (block, iteration, entry) VALUES (?, ?, ?)`
		if err := s.insert(q, it.Block, it.Iteration, text); err != nil {
			return fmt.Errorf("insert iteration %d of bb%d: %w", it.Iteration, it.Block, err)
		}
	}

	for _, r := range data.Reports {
		const q = `INSERT INTO reports (phase, rule, message) VALUES (?, ?, ?)`
		if err := s.insert(q, r.Phase, r.Rule, r.Message); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
	}

	return nil
}

// insert runs a cached insert statement. Arguments are either int or
// string.
func (s *Store) insert(query string, args ...any) error {
	stmt, err := s.conn.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	for i, a := range args {
		switch v := a.(type) {
		case int:
			stmt.BindInt64(i+1, int64(v))
		case string:
			stmt.BindText(i+1, v)
		default:
			return fmt.Errorf("unsupported argument type %T", a)
		}
	}

	if _, err := stmt.Step(); err != nil {
		return err
	}

	return nil
}

func jsonText(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %T: %w", v, err)
	}

	return string(data), nil
}
