package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetAsignacion returns the assignment with its unit, trailer, and operator
// joined in. sql.ErrNoRows passes through for the caller to map to 404.
func (s *PostgresStore) GetAsignacion(ctx context.Context, id int) (Asignacion, error) {
	const query = `
		SELECT a.id, a.unidad_id, a.caja_id, a.operador_id, a.created_at, a.updated_at,
			u.id, u.no_unidad, u.u_placas, u.tipo_unidad,
			c.id, c.c_placas, c.c_marca,
			o.id, o.nombre, o.apellido_p, o.apellido_m
		FROM asignaciones a
		JOIN unidades u ON u.id = a.unidad_id
		LEFT JOIN cajas c ON c.id = a.caja_id
		JOIN operadores o ON o.id = a.operador_id
		WHERE a.id = $1
	`
	var a Asignacion
	var cajaID sql.NullInt64
	var cID sql.NullInt64
	var cPlacas, cMarca sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UnidadID, &cajaID, &a.OperadorID, &a.CreatedAt, &a.UpdatedAt,
		&a.Unidad.ID, &a.Unidad.NoUnidad, &a.Unidad.Placas, &a.Unidad.TipoUnidad,
		&cID, &cPlacas, &cMarca,
		&a.Operador.ID, &a.Operador.Nombre, &a.Operador.ApellidoP, &a.Operador.ApellidoM,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Asignacion{}, err
		}
		return Asignacion{}, fmt.Errorf("get asignacion %d: %w", id, err)
	}
	if cajaID.Valid {
		cajaIDInt := int(cajaID.Int64)
		a.CajaID = &cajaIDInt
		a.Caja = &Caja{ID: int(cID.Int64), Placas: cPlacas.String, Marca: cMarca.String}
	}
	return a, nil
}

// InsertChecklist stores a reconciled submission payload and returns the
// generated checklist id.
func (s *PostgresStore) InsertChecklist(ctx context.Context, asignacionID int, respuestas []byte) (int, error) {
	const query = `
		INSERT INTO checklists (asignacion_id, respuestas)
		VALUES ($1, $2)
		RETURNING id
	`
	var id int
	if err := s.db.QueryRowContext(ctx, query, asignacionID, respuestas).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert checklist: %w", err)
	}
	return id, nil
}

// GetChecklist reads a submitted checklist scoped to its assignment.
func (s *PostgresStore) GetChecklist(ctx context.Context, asignacionID, checklistID int) (Checklist, error) {
	const query = `
		SELECT id, asignacion_id, respuestas, created_at, updated_at
		FROM checklists
		WHERE id = $1 AND asignacion_id = $2
	`
	var c Checklist
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, checklistID, asignacionID).Scan(
		&c.ID, &c.AsignacionID, &raw, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Checklist{}, err
		}
		return Checklist{}, fmt.Errorf("get checklist %d: %w", checklistID, err)
	}
	c.Respuestas = json.RawMessage(raw)
	return c, nil
}

// UpdateChecklist replaces a submitted checklist's payload. Returns
// sql.ErrNoRows when the checklist does not exist for the assignment.
func (s *PostgresStore) UpdateChecklist(ctx context.Context, asignacionID, checklistID int, respuestas []byte) error {
	const query = `
		UPDATE checklists
		SET respuestas = $3, updated_at = NOW()
		WHERE id = $1 AND asignacion_id = $2
	`
	result, err := s.db.ExecContext(ctx, query, checklistID, asignacionID, respuestas)
	if err != nil {
		return fmt.Errorf("update checklist %d: %w", checklistID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update checklist %d: %w", checklistID, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
