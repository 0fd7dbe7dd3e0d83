package search

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback
// over the checklists table's generated fts column.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over the stored checklist payloads, ranked with
// ts_rank and snippeted with ts_headline.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "c.fts @@ plainto_tsquery('spanish', $1)"
	args := []any{q.Text}
	if q.TipoUnidad != "" {
		where += " AND LOWER(u.tipo_unidad) = LOWER($2)"
		args = append(args, q.TipoUnidad)
	}

	baseSQL := fmt.Sprintf(`
		FROM checklists c
		JOIN asignaciones a ON a.id = c.asignacion_id
		JOIN unidades u ON u.id = a.unidad_id
		JOIN operadores o ON o.id = a.operador_id
		WHERE %s`, where)

	ctx := context.Background()

	var total int
	countSQL := "SELECT count(*) " + baseSQL
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT c.id, c.asignacion_id, u.no_unidad, u.tipo_unidad,
			TRIM(CONCAT(o.nombre, ' ', o.apellido_p)) AS operador,
			ts_headline('spanish', c.respuestas::text, plainto_tsquery('spanish', $1), 'MaxFragments=1,MaxWords=30') AS snippet
		%s
		ORDER BY ts_rank(c.fts, plainto_tsquery('spanish', $1)) DESC
		LIMIT %d OFFSET %d`, baseSQL, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var checklistID int
		if err := rows.Scan(&checklistID, &r.AsignacionID, &r.NoUnidad, &r.TipoUnidad, &r.Operador, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.ChecklistID = strconv.Itoa(checklistID)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all checklist records for full reindexing after a
// Meilisearch recovery.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ChecklistRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.asignacion_id, u.no_unidad, u.u_placas, u.tipo_unidad,
			TRIM(CONCAT(o.nombre, ' ', o.apellido_p)) AS operador,
			c.respuestas::text,
			EXTRACT(EPOCH FROM c.created_at)::bigint
		FROM checklists c
		JOIN asignaciones a ON a.id = c.asignacion_id
		JOIN unidades u ON u.id = a.unidad_id
		JOIN operadores o ON o.id = a.operador_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load checklists: %w", err)
	}
	defer rows.Close()

	records := make([]ChecklistRecord, 0)
	for rows.Next() {
		var rec ChecklistRecord
		var id int
		if err := rows.Scan(&id, &rec.AsignacionID, &rec.NoUnidad, &rec.Placas, &rec.TipoUnidad, &rec.Operador, &rec.Respuestas, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checklist: %w", err)
		}
		rec.ID = strconv.Itoa(id)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklists: %w", err)
	}
	return records, nil
}
