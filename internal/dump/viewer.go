package dump

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "modernc.org/sqlite"
)

// OpenDB opens a dump database read-only.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return db, nil
}

// Viewer serves a dump database.
type Viewer struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewViewer creates a viewer over the database.
func NewViewer(db *sql.DB, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Viewer{
		db:     db,
		logger: logger.With(slog.String("component", "viewer")),
	}
}

// BlockSummary is an item of the block list.
type BlockSummary struct {
	Block      int `json:"block"`
	Iterations int `json:"iterations"`
}

// InstructionSummary is an item of the instruction list of a block.
type InstructionSummary struct {
	Statement   int    `json:"statement"`
	Instruction string `json:"instruction"`
}

// Handler returns the HTTP handler.
func (v *Viewer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/meta", v.handleMeta)
		r.Get("/reports", v.handleReports)
		r.Get("/blocks", v.handleBlocks)
		r.Route("/blocks/{block}", func(r chi.Router) {
			r.Get("/", v.handleBlock)
			r.Get("/instructions", v.handleInstructions)
			r.Get("/instructions/{statement}", v.handleInstruction)
			r.Get("/successors", v.handleSuccessors)
			r.Get("/iterations", v.handleIterations)
		})
	})

	return r
}

func (v *Viewer) handleMeta(w http.ResponseWriter, r *http.Request) {
	var name string
	err := v.db.QueryRowContext(r.Context(), `SELECT value FROM meta WHERE key = 'name'`).Scan(&name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		v.fail(w, err)
		return
	}

	writeJSON(w, map[string]string{"name": name})
}

func (v *Viewer) handleReports(w http.ResponseWriter, r *http.Request) {
	rows, err := v.db.QueryContext(r.Context(), `SELECT phase, rule, message FROM reports ORDER BY id`)
	if err != nil {
		v.fail(w, err)
		return
	}
	defer rows.Close()

	res := []Report{}
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.Phase, &rep.Rule, &rep.Message); err != nil {
			v.fail(w, err)
			return
		}
		res = append(res, rep)
	}
	if err := rows.Err(); err != nil {
		v.fail(w, err)
		return
	}

	writeJSON(w, res)
}

func (v *Viewer) handleBlocks(w http.ResponseWriter, r *http.Request) {
	rows, err := v.db.QueryContext(r.Context(), `SELECT block, iterations FROM blocks ORDER BY block`)
	if err != nil {
		v.fail(w, err)
		return
	}
	defer rows.Close()

	res := []BlockSummary{}
	for rows.Next() {
		var b BlockSummary
		if err := rows.Scan(&b.Block, &b.Iterations); err != nil {
			v.fail(w, err)
			return
		}
		res = append(res, b)
	}
	if err := rows.Err(); err != nil {
		v.fail(w, err)
		return
	}

	writeJSON(w, res)
}

func (v *Viewer) handleBlock(w http.ResponseWriter, r *http.Request) {
	block, ok := intParam(w, r, "block")
	if !ok {
		return
	}

	res := Block{Block: block}
	var entry, exit string
	err := v.db.QueryRowContext(r.Context(), `SELECT iterations, entry, exit FROM blocks WHERE block = ?`, block).
		Scan(&res.Iterations, &entry, &exit)
	if err != nil {
		v.fail(w, err)
		return
	}
	if err := json.Unmarshal([]byte(entry), &res.Entry); err != nil {
		v.fail(w, fmt.Errorf("decode entry: %w", err))
		return
	}
	if err := json.Unmarshal([]byte(exit), &res.Exit); err != nil {
		v.fail(w, fmt.Errorf("decode exit: %w", err))
		return
	}

	writeJSON(w, res)
}

func (v *Viewer) handleInstructions(w http.ResponseWriter, r *http.Request) {
	block, ok := intParam(w, r, "block")
	if !ok {
		return
	}

	rows, err := v.db.QueryContext(r.Context(),
		`SELECT statement, instruction FROM instructions WHERE block = ? ORDER BY statement`, block)
	if err != nil {
		v.fail(w, err)
		return
	}
	defer rows.Close()

	res := []InstructionSummary{}
	for rows.Next() {
		var ins InstructionSummary
		if err := rows.Scan(&ins.Statement, &ins.Instruction); err != nil {
			v.fail(w, err)
			return
		}
		res = append(res, ins)
	}
	if err := rows.Err(); err != nil {
		v.fail(w, err)
		return
	}

	writeJSON(w, res)
}

func (v *Viewer) handleInstruction(w http.ResponseWriter, r *http.Request) {
	block, ok := intParam(w, r, "block")
	if !ok {
		return
	}
	stmt, ok := intParam(w, r, "statement")
	if !ok {
		return
	}

	var data string
	err := v.db.QueryRowContext(r.Context(), `SELECT data FROM instructions WHERE block = ? AND statement = ?`, block, stmt).
		Scan(&data)
	if err != nil {
		v.fail(w, err)
		return
	}

	writeRawJSON(w, data)
}

func (v *Viewer) handleSuccessors(w http.ResponseWriter, r *http.Request) {
	block, ok := intParam(w, r, "block")
	if !ok {
		return
	}

	rows, err := v.db.QueryContext(r.Context(),
		`SELECT to_block, actions FROM successors WHERE from_block = ? ORDER BY to_block`, block)
	if err != nil {
		v.fail(w, err)
		return
	}
	defer rows.Close()

	res := []Successor{}
	for rows.Next() {
		s := Successor{From: block}
		var actions string
		if err := rows.Scan(&s.To, &actions); err != nil {
			v.fail(w, err)
			return
		}
		if err := json.Unmarshal([]byte(actions), &s.Actions); err != nil {
			v.fail(w, fmt.Errorf("decode actions: %w", err))
			return
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		v.fail(w, err)
		return
	}

	writeJSON(w, res)
}

func (v *Viewer) handleIterations(w http.ResponseWriter, r *http.Request) {
	block, ok := intParam(w, r, "block")
	if !ok {
		return
	}

	rows, err := v.db.QueryContext(r.Context(),
		`SELECT iteration, entry FROM iterations WHERE block = ? ORDER BY iteration`, block)
	if err != nil {
		v.fail(w, err)
		return
	}
	defer rows.Close()

	res := []Iteration{}
	for rows.Next() {
		it := Iteration{Block: block}
		var entry string
		if err := rows.Scan(&it.Iteration, &entry); err != nil {
			v.fail(w, err)
			return
		}
		if err := json.Unmarshal([]byte(entry), &it.Entry); err != nil {
			v.fail(w, fmt.Errorf("decode entry: %w", err))
			return
		}
		res = append(res, it)
	}
	if err := rows.Err(); err != nil {
		v.fail(w, err)
		return
	}

	writeJSON(w, res)
}

// fail responds 404 for missing rows and 500 otherwise.
func (v *Viewer) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	v.logger.Error("query dump", slog.Any("err", err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		http.Error(w, fmt.Sprintf("invalid %s %q", name, raw), http.StatusBadRequest)
		return 0, false
	}

	return v, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeRawJSON(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(data))
}
