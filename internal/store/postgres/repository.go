// Package postgres implements the persistence gateway on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mkang-dev/chessio-server/internal/store"
)

// Open dials the database and verifies connectivity. The returned handle is
// shared between the record repository and the credential verifier.
func Open(databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Repository stores session records in the games table and keeps per-player
// win/loss counters on the players table.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ store.Gateway = (*Repository)(nil)

func (r *Repository) CreateSession(ctx context.Context, white, black string, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO games (id, white_player, black_player, result, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, white, black, store.ResultOngoing, startedAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) AppendMoves(ctx context.Context, recordID string, movesUCI, movesSAN []string) error {
	uciRaw, _ := json.Marshal(movesUCI)
	sanRaw, _ := json.Marshal(movesSAN)
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET moves_uci = $2, moves_san = $3 WHERE id = $1`,
		recordID, string(uciRaw), string(sanRaw))
	return err
}

func (r *Repository) FinalizeSession(ctx context.Context, rec *store.SessionRecord) error {
	uciRaw, _ := json.Marshal(rec.MovesUCI)
	sanRaw, _ := json.Marshal(rec.MovesSAN)
	pgn := buildPGN(rec)

	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET
		    moves_uci = $2, moves_san = $3, pgn = $4,
		    result = $5, result_method = $6, ended_at = $7
		  WHERE id = $1`,
		rec.ID, string(uciRaw), string(sanRaw), pgn,
		rec.Result, strings.TrimSpace(rec.ResultMethod), rec.EndedAt)
	if err != nil {
		return err
	}
	return r.bumpStats(ctx, rec)
}

// bumpStats updates both players' counters for a decided game.
func (r *Repository) bumpStats(ctx context.Context, rec *store.SessionRecord) error {
	var whiteCol, blackCol string
	switch rec.Result {
	case store.ResultWhite:
		whiteCol, blackCol = "wins", "losses"
	case store.ResultBlack:
		whiteCol, blackCol = "losses", "wins"
	case store.ResultDraw:
		whiteCol, blackCol = "draws", "draws"
	default:
		return nil
	}
	q := `UPDATE players SET games_played = games_played + 1, %s = %s + 1 WHERE username = $1`
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(q, whiteCol, whiteCol), rec.WhitePlayer); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(q, blackCol, blackCol), rec.BlackPlayer)
	return err
}

func (r *Repository) History(ctx context.Context, identity string, limit int) ([]store.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, white_player, black_player, moves_uci, moves_san, result,
		        COALESCE(result_method, ''), started_at, ended_at
		   FROM games
		  WHERE white_player = $1 OR black_player = $1
		  ORDER BY started_at DESC
		  LIMIT $2`, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []store.SessionRecord
	for rows.Next() {
		var rec store.SessionRecord
		var uciRaw, sanRaw string
		var endedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.WhitePlayer, &rec.BlackPlayer,
			&uciRaw, &sanRaw, &rec.Result, &rec.ResultMethod,
			&rec.StartedAt, &endedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(uciRaw), &rec.MovesUCI)
		_ = json.Unmarshal([]byte(sanRaw), &rec.MovesSAN)
		if endedAt.Valid {
			rec.EndedAt = endedAt.Time
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
