package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flotilla/api/internal/checklist"
	"flotilla/api/internal/config"
	"flotilla/api/internal/draft"
	"flotilla/api/internal/search"
	"flotilla/api/internal/store"
	"flotilla/api/internal/template"
)

type dataStore interface {
	GetAsignacion(context.Context, int) (store.Asignacion, error)
	InsertChecklist(context.Context, int, []byte) (int, error)
	GetChecklist(context.Context, int, int) (store.Checklist, error)
	UpdateChecklist(context.Context, int, int, []byte) error
	Ping(context.Context) error
}

type draftStore interface {
	Load(context.Context, string) (checklist.State, bool, error)
	Clear(context.Context, string) error
	Ping(context.Context) error
}

type draftSaver interface {
	Save(string, checklist.State)
	Cancel(string)
}

type searchIndex interface {
	Search(search.Query) search.Response
	IndexChecklist(search.ChecklistRecord)
}

// Service orchestrates the checklist-filling workflow: assignment lookup,
// applicability filtering, answer-state seeding, draft persistence,
// validation, and submission reconciliation.
type Service struct {
	cfg    config.Config
	store  dataStore
	tpl    template.Template
	search searchIndex
	drafts draftStore
	saver  draftSaver
}

// New creates a service without draft persistence (drafts become no-ops).
func New(cfg config.Config, dataStore *store.PostgresStore, tpl template.Template, searchService *search.Service) *Service {
	return &Service{
		cfg:    cfg,
		store:  dataStore,
		tpl:    tpl,
		search: searchService,
	}
}

// NewWithDrafts creates a service with a Redis-backed draft store and its
// debounced saver.
func NewWithDrafts(cfg config.Config, dataStore *store.PostgresStore, tpl template.Template, searchService *search.Service, drafts *draft.Store, saver *draft.Saver) *Service {
	s := New(cfg, dataStore, tpl, searchService)
	s.drafts = drafts
	s.saver = saver
	return s
}

// SubmitRequest is the body accepted by submit, update, and draft saves: the
// flat answer state as the form holds it.
type SubmitRequest struct {
	Respuestas checklist.State `json:"respuestas"`
}

// FormResponse is the workflow-entry payload: the filtered sections to render
// and the seeded answer state, plus whether the state came from a draft.
type FormResponse struct {
	AsignacionID int                `json:"asignacionId"`
	TipoUnidad   string             `json:"tipoUnidad"`
	Secciones    []template.Section `json:"secciones"`
	Respuestas   checklist.State    `json:"respuestas"`
	FromDraft    bool               `json:"fromDraft"`
}

type SubmitResponse struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// DraftsEnabled reports whether a draft store is configured.
func (s *Service) DraftsEnabled() bool {
	return s.drafts != nil
}

// DraftsPing checks draft-store connectivity; nil when drafts are disabled.
func (s *Service) DraftsPing(ctx context.Context) error {
	if s.drafts == nil {
		return nil
	}
	return s.drafts.Ping(ctx)
}

// GetAsignacion looks up an assignment with its unit, trailer, and operator.
func (s *Service) GetAsignacion(ctx context.Context, id int) (store.Asignacion, error) {
	a, err := s.store.GetAsignacion(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Asignacion{}, domainError(http.StatusNotFound, "NOT_FOUND", "asignación no encontrada", nil)
		}
		return store.Asignacion{}, fmt.Errorf("get asignacion: %w", err)
	}
	return a, nil
}

func draftKey(asignacionID int, checklistID *int) string {
	if checklistID != nil {
		return draft.EditKey(asignacionID, *checklistID)
	}
	return draft.Key(asignacionID)
}

// loadDraft returns the stored draft, tolerating a disabled or failing store:
// drafts are a convenience, so errors degrade to "no draft".
func (s *Service) loadDraft(ctx context.Context, key string) (checklist.State, bool) {
	if s.drafts == nil {
		return checklist.State{}, false
	}
	state, found, err := s.drafts.Load(ctx, key)
	if err != nil {
		log.Printf("draft: load %s failed, starting fresh: %v", key, err)
		return checklist.State{}, false
	}
	return state, found
}

// ChecklistForm assembles the create-workflow entry: sections filtered for
// the assignment's unit type and the answer state seeded from a draft when
// one exists, otherwise from the type placeholders.
func (s *Service) ChecklistForm(ctx context.Context, asignacionID int) (FormResponse, error) {
	a, err := s.GetAsignacion(ctx, asignacionID)
	if err != nil {
		return FormResponse{}, err
	}

	sections := checklist.Filter(s.tpl, a.Unidad.TipoUnidad)
	prior := map[int]checklist.Value{}
	draftState, fromDraft := s.loadDraft(ctx, draftKey(asignacionID, nil))
	if fromDraft {
		prior = draftState.Values()
	}

	return FormResponse{
		AsignacionID: asignacionID,
		TipoUnidad:   a.Unidad.TipoUnidad,
		Secciones:    sections,
		Respuestas:   checklist.Seed(sections, prior),
		FromDraft:    fromDraft,
	}, nil
}

// EditChecklistForm assembles the edit-workflow entry: seeded from the saved
// submission, with a draft overriding it when one exists.
func (s *Service) EditChecklistForm(ctx context.Context, asignacionID, checklistID int) (FormResponse, error) {
	a, err := s.GetAsignacion(ctx, asignacionID)
	if err != nil {
		return FormResponse{}, err
	}
	saved, err := s.GetChecklist(ctx, asignacionID, checklistID)
	if err != nil {
		return FormResponse{}, err
	}

	sections := checklist.Filter(s.tpl, a.Unidad.TipoUnidad)

	var payload checklist.Payload
	if err := json.Unmarshal(saved.Respuestas, &payload); err != nil {
		return FormResponse{}, fmt.Errorf("decode stored checklist %d: %w", checklistID, err)
	}
	prior := payload.Values()

	draftState, fromDraft := s.loadDraft(ctx, draftKey(asignacionID, &checklistID))
	if fromDraft {
		prior = draftState.Values()
	}

	return FormResponse{
		AsignacionID: asignacionID,
		TipoUnidad:   a.Unidad.TipoUnidad,
		Secciones:    sections,
		Respuestas:   checklist.Seed(sections, prior),
		FromDraft:    fromDraft,
	}, nil
}

// LoadDraft returns the raw stored draft for the key, if any.
func (s *Service) LoadDraft(ctx context.Context, asignacionID int, checklistID *int) (checklist.State, bool) {
	return s.loadDraft(ctx, draftKey(asignacionID, checklistID))
}

// SaveDraft schedules a debounced draft write. The save is skipped when
// drafts are disabled, when no questions apply yet (unit type unresolved),
// or when the state is indistinguishable from a freshly seeded empty form —
// the latter so an untouched initial render never overwrites a real draft.
func (s *Service) SaveDraft(ctx context.Context, asignacionID int, checklistID *int, state checklist.State) (skipped bool, err error) {
	a, err := s.GetAsignacion(ctx, asignacionID)
	if err != nil {
		return false, err
	}
	if s.drafts == nil || s.saver == nil {
		return true, nil
	}

	sections := checklist.Filter(s.tpl, a.Unidad.TipoUnidad)
	if len(sections) == 0 {
		return true, nil
	}
	normalized := checklist.Seed(sections, state.Values())
	if checklist.IsAllDefault(sections, normalized) {
		return true, nil
	}

	s.saver.Save(draftKey(asignacionID, checklistID), normalized)
	return false, nil
}

// DiscardDraft removes a draft and cancels any pending debounced write for it.
func (s *Service) DiscardDraft(ctx context.Context, asignacionID int, checklistID *int) error {
	if s.drafts == nil {
		return nil
	}
	key := draftKey(asignacionID, checklistID)
	if s.saver != nil {
		s.saver.Cancel(key)
	}
	if err := s.drafts.Clear(ctx, key); err != nil {
		return fmt.Errorf("discard draft: %w", err)
	}
	return nil
}

// clearDraftAfterSubmit clears the draft once a submission has been written.
// Failures are logged only: the system of record already holds the answers.
func (s *Service) clearDraftAfterSubmit(ctx context.Context, key string) {
	if s.drafts == nil {
		return
	}
	if s.saver != nil {
		s.saver.Cancel(key)
	}
	if err := s.drafts.Clear(ctx, key); err != nil {
		log.Printf("draft: clear %s after submit failed: %v", key, err)
	}
}

// prepareSubmission runs the shared validate-and-reconcile pipeline.
func (s *Service) prepareSubmission(a store.Asignacion, state checklist.State) ([]byte, checklist.Payload, error) {
	sections := checklist.Filter(s.tpl, a.Unidad.TipoUnidad)
	if len(sections) == 0 {
		return nil, checklist.Payload{}, domainError(http.StatusConflict, "SIN_PREGUNTAS",
			"No hay preguntas aplicables para este tipo de unidad", nil)
	}

	normalized := checklist.Seed(sections, state.Values())
	if fieldErrors := checklist.Validate(sections, normalized); len(fieldErrors) > 0 {
		return nil, checklist.Payload{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_FAILED",
			fieldErrors[0].Message, fieldErrors)
	}

	payload := checklist.Reconcile(sections, normalized)
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, checklist.Payload{}, fmt.Errorf("encode payload: %w", err)
	}
	return raw, payload, nil
}

// SubmitChecklist validates and reconciles the answer state and writes the
// checklist. On success the draft is cleared and the new checklist is indexed
// for search; on any failure the draft is left intact so the user can retry.
func (s *Service) SubmitChecklist(ctx context.Context, asignacionID int, state checklist.State) (SubmitResponse, error) {
	a, err := s.GetAsignacion(ctx, asignacionID)
	if err != nil {
		return SubmitResponse{}, err
	}

	raw, payload, err := s.prepareSubmission(a, state)
	if err != nil {
		return SubmitResponse{}, err
	}

	id, err := s.store.InsertChecklist(ctx, asignacionID, raw)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("save checklist: %w", err)
	}

	s.clearDraftAfterSubmit(ctx, draftKey(asignacionID, nil))
	s.indexChecklist(a, id, payload)

	return SubmitResponse{ID: id, Message: "Checklist guardado correctamente"}, nil
}

// UpdateChecklist runs the same pipeline against an existing checklist.
func (s *Service) UpdateChecklist(ctx context.Context, asignacionID, checklistID int, state checklist.State) (SubmitResponse, error) {
	a, err := s.GetAsignacion(ctx, asignacionID)
	if err != nil {
		return SubmitResponse{}, err
	}

	raw, payload, err := s.prepareSubmission(a, state)
	if err != nil {
		return SubmitResponse{}, err
	}

	if err := s.store.UpdateChecklist(ctx, asignacionID, checklistID, raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SubmitResponse{}, domainError(http.StatusNotFound, "NOT_FOUND", "checklist no encontrado", nil)
		}
		return SubmitResponse{}, fmt.Errorf("update checklist: %w", err)
	}

	s.clearDraftAfterSubmit(ctx, draftKey(asignacionID, &checklistID))
	s.indexChecklist(a, checklistID, payload)

	return SubmitResponse{ID: checklistID, Message: "Checklist actualizado correctamente"}, nil
}

// GetChecklist reads a submitted checklist in its stored nested shape.
func (s *Service) GetChecklist(ctx context.Context, asignacionID, checklistID int) (store.Checklist, error) {
	c, err := s.store.GetChecklist(ctx, asignacionID, checklistID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Checklist{}, domainError(http.StatusNotFound, "NOT_FOUND", "checklist no encontrado", nil)
		}
		return store.Checklist{}, fmt.Errorf("get checklist: %w", err)
	}
	return c, nil
}

// SearchChecklists queries the search facade.
func (s *Service) SearchChecklists(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) indexChecklist(a store.Asignacion, checklistID int, payload checklist.Payload) {
	if s.search == nil {
		return
	}
	s.search.IndexChecklist(search.ChecklistRecord{
		ID:           strconv.Itoa(checklistID),
		AsignacionID: a.ID,
		NoUnidad:     a.Unidad.NoUnidad,
		Placas:       a.Unidad.Placas,
		TipoUnidad:   strings.ToLower(a.Unidad.TipoUnidad),
		Operador:     strings.TrimSpace(a.Operador.Nombre + " " + a.Operador.ApellidoP),
		Respuestas:   flattenAnswers(payload),
		CreatedAt:    time.Now().Unix(),
	})
}

// flattenAnswers turns a payload into the searchable text blob: question text
// followed by the answer as a string.
func flattenAnswers(payload checklist.Payload) string {
	var b strings.Builder
	for _, section := range payload.Sections {
		for _, q := range section.Questions {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(q.Text)
			if answer := q.Value.AsString(); answer != "" {
				b.WriteString(" ")
				b.WriteString(answer)
			}
		}
	}
	return b.String()
}
