package store

import (
	"encoding/json"
	"time"
)

// Unidad is a vehicle. TipoUnidad is the classification that parameterizes
// which checklist questions apply (e.g. "tractocamion", "camion unitario").
type Unidad struct {
	ID         int    `json:"id"`
	NoUnidad   string `json:"no_unidad"`
	Placas     string `json:"u_placas"`
	TipoUnidad string `json:"tipo_unidad"`
}

// Caja is a trailer.
type Caja struct {
	ID     int    `json:"id"`
	Placas string `json:"c_placas"`
	Marca  string `json:"c_marca"`
}

// Operador is a driver.
type Operador struct {
	ID        int    `json:"id"`
	Nombre    string `json:"nombre"`
	ApellidoP string `json:"apellido_p"`
	ApellidoM string `json:"apellido_m"`
}

// Asignacion pairs a unit, an optional trailer, and an operator for a job.
type Asignacion struct {
	ID         int       `json:"id"`
	UnidadID   int       `json:"unidadId"`
	CajaID     *int      `json:"cajaId"`
	OperadorID int       `json:"operadorId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Unidad     Unidad    `json:"unidad"`
	Caja       *Caja     `json:"caja,omitempty"`
	Operador   Operador  `json:"operador"`
}

// Checklist is a submitted inspection record. Respuestas holds the full
// nested payload (secciones/preguntas with answers) exactly as reconciled at
// submission time.
type Checklist struct {
	ID           int             `json:"id"`
	AsignacionID int             `json:"asignacionId"`
	Respuestas   json.RawMessage `json:"respuestas"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
