package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config carries the engine's collaborators and the acting-user identity for
// one encounter session.
type Config struct {
	Backend   Backend
	Queue     Queue       // optional; nil disables offline queueing
	Online    func() bool // connectivity check; nil means always online
	PatientID string
	Role      Role
	UserName  string
	Now       func() time.Time // optional clock override
	Log       zerolog.Logger
}

// Engine owns the clinical workflow state machine for one patient encounter:
// the five ordered stages, the draft vitals and notes, and the rules for
// unlocking and completing each stage. The backend is the single source of
// truth; local stage state is rebuilt from it on every Load and only mutated
// in direct response to a successful persistence call (except the deliberate
// offline vitals path).
type Engine struct {
	backend Backend
	queue   Queue
	online  func() bool
	now     func() time.Time
	log     zerolog.Logger

	patientID string
	role      Role
	userName  string

	mu           sync.Mutex
	gen          uint64 // bumped by Load and Close to drop stale results
	steps        []Step
	index        int
	visitID      string
	vitals       VitalsDraft
	notes        NotesDraft
	referrals    []Referral
	loading      bool
	savingVitals bool
	completing   bool
}

// New builds an engine for one patient encounter.
func New(cfg Config) (*Engine, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("workflow: backend is required")
	}
	if cfg.PatientID == "" {
		return nil, fmt.Errorf("workflow: patient id is required")
	}
	switch cfg.Role {
	case RoleClerk, RoleNurse, RoleDoctor, RoleSocialWorker, RoleAdministrator:
	default:
		return nil, fmt.Errorf("workflow: unknown role %q", cfg.Role)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		backend:   cfg.Backend,
		queue:     cfg.Queue,
		online:    cfg.Online,
		now:       now,
		log:       cfg.Log,
		patientID: cfg.PatientID,
		role:      cfg.Role,
		userName:  cfg.UserName,
	}
	e.steps = newSteps(now())
	return e, nil
}

// Close invalidates any in-flight operation so its result is discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	e.gen++
	e.mu.Unlock()
}

// Steps returns a copy of the current stage records.
func (e *Engine) Steps() []Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Step, len(e.steps))
	copy(out, e.steps)
	return out
}

// Current returns the currently displayed stage record.
func (e *Engine) Current() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps[e.index]
}

// VisitID returns the active visit identifier, empty until one is created.
func (e *Engine) VisitID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visitID
}

// Notes returns a copy of the accumulated notes draft.
func (e *Engine) Notes() NotesDraft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notes
}

// Vitals returns a copy of the nursing form draft.
func (e *Engine) Vitals() VitalsDraft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vitals
}

// ReferralList returns the referrals fetched for the patient.
func (e *Engine) ReferralList() []Referral {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Referral, len(e.referrals))
	copy(out, e.referrals)
	return out
}

// UpdateNotes applies fn to the notes draft under the engine's lock.
func (e *Engine) UpdateNotes(fn func(*NotesDraft)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.notes)
}

// UpdateVitals applies fn to the vitals draft under the engine's lock.
func (e *Engine) UpdateVitals(fn func(*VitalsDraft)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.vitals)
}

// CanAccess reports whether the acting user may open the given stage. A stage
// is accessible when the user is an administrator, when it is already
// completed (always viewable for review), or when the user's role owns it.
// File Closure additionally requires the counseling session to be completed
// first; that is a sequencing rule and applies to administrators too.
func (e *Engine) CanAccess(stage Stage) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canAccess(stage)
}

func (e *Engine) canAccess(stage Stage) bool {
	step := e.step(stage)
	if step == nil {
		return false
	}
	if step.Status == StatusCompleted {
		return true
	}
	if stage == StageClosure && !e.stageDone(StageCounseling) {
		return false
	}
	if e.role == RoleAdministrator {
		return true
	}
	return step.Role == e.role
}

// Select moves the displayed stage to the given stage if it is accessible.
func (e *Engine) Select(stage Stage) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canAccess(stage) {
		return false
	}
	for i := range e.steps {
		if e.steps[i].Stage == stage {
			e.index = i
			return true
		}
	}
	return false
}

// Load rebuilds the engine's state from the backend: the most recent visit,
// its vitals history, the authoritative workflow snapshot, and prior notes
// and referrals. Previous in-memory state is never trusted across loads.
func (e *Engine) Load(ctx context.Context) ([]Event, error) {
	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return nil, nil
	}
	e.loading = true
	e.gen++
	gen := e.gen
	patientID := e.patientID
	e.mu.Unlock()

	done := func() bool {
		e.mu.Lock()
		e.loading = false
		stale := gen != e.gen
		e.mu.Unlock()
		return stale
	}

	visit, err := e.backend.LatestVisit(ctx, patientID)
	if err != nil {
		if done() {
			return nil, nil
		}
		return []Event{errNotice("could not load the patient's visit history")},
			fmt.Errorf("load latest visit: %w", err)
	}

	var (
		summary   *VitalsSummary
		snap      Snapshot
		notes     []Note
		referrals []Referral
	)
	if visit != nil {
		snap, err = e.backend.WorkflowStatus(ctx, visit.ID)
		if err != nil {
			if done() {
				return nil, nil
			}
			return []Event{errNotice("could not load the workflow status for this visit")},
				fmt.Errorf("load workflow status: %w", err)
		}
		// Prefill data is best-effort; a gap here never blocks the visit.
		if summary, err = e.backend.VisitVitals(ctx, visit.ID); err != nil {
			e.log.Warn().Err(err).Str("visit_id", visit.ID).Msg("vitals prefill unavailable")
			summary = nil
		}
		if notes, err = e.backend.VisitNotes(ctx, visit.ID); err != nil {
			e.log.Warn().Err(err).Str("visit_id", visit.ID).Msg("notes prefill unavailable")
			notes = nil
		}
		if referrals, err = e.backend.Referrals(ctx, patientID); err != nil {
			e.log.Warn().Err(err).Str("patient_id", patientID).Msg("referrals unavailable")
			referrals = nil
		}
	}

	var failed []FailedRecord
	if e.queue != nil {
		if failed, err = e.queue.FailedFor(patientID); err != nil {
			e.log.Warn().Err(err).Msg("offline queue inspection failed")
			failed = nil
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	if gen != e.gen {
		return nil, nil
	}

	e.steps = newSteps(e.now())
	e.index = 0
	e.visitID = ""
	e.vitals = VitalsDraft{}
	e.notes = NotesDraft{}
	e.referrals = referrals

	var events []Event
	if visit != nil {
		e.visitID = visit.ID
		for i := range e.steps {
			if e.steps[i].Stage == StageRegistration {
				continue
			}
			if completed, at := snap.Completed(e.steps[i].Stage); completed {
				e.steps[i].Status = StatusCompleted
				e.steps[i].CompletedAt = at
			}
		}
		e.prefillVitals(summary)
		e.prefillNotes(notes)
	}

	for i := range e.steps {
		s := &e.steps[i]
		if s.Status == StatusCompleted {
			continue
		}
		if e.role != RoleAdministrator && s.Role != e.role {
			continue
		}
		if s.Stage == StageClosure && !e.stageDone(StageCounseling) {
			continue
		}
		s.Status = StatusInProgress
		e.index = i
		break
	}

	if n := len(failed); n > 0 {
		events = append(events, warning(fmt.Sprintf(
			"%d offline record(s) for this patient failed to sync and must be re-entered", n)))
	}
	return events, nil
}

// prefillVitals seeds the nursing form from the latest reading, falling back
// to the latest non-null value per field when the most recent reading has gaps.
func (e *Engine) prefillVitals(summary *VitalsSummary) {
	if summary == nil || (summary.Latest == nil && summary.LastNonNull == nil) {
		return
	}
	latest, fallback := summary.Latest, summary.LastNonNull
	if latest == nil {
		latest = &VitalSigns{}
	}
	if fallback == nil {
		fallback = &VitalSigns{}
	}
	pickInt := func(a, b *int) *int {
		if a != nil {
			v := *a
			return &v
		}
		if b != nil {
			v := *b
			return &v
		}
		return nil
	}
	pickFloat := func(a, b *float64) *float64 {
		if a != nil {
			v := *a
			return &v
		}
		if b != nil {
			v := *b
			return &v
		}
		return nil
	}
	e.vitals = VitalsDraft{
		BloodPressureSystolic:  pickInt(latest.BloodPressureSystolic, fallback.BloodPressureSystolic),
		BloodPressureDiastolic: pickInt(latest.BloodPressureDiastolic, fallback.BloodPressureDiastolic),
		Temperature:            pickFloat(latest.Temperature, fallback.Temperature),
		Weight:                 pickFloat(latest.Weight, fallback.Weight),
		Height:                 pickFloat(latest.Height, fallback.Height),
		Pulse:                  pickInt(latest.Pulse, fallback.Pulse),
		RespiratoryRate:        pickInt(latest.RespiratoryRate, fallback.RespiratoryRate),
		OxygenSaturation:       pickInt(latest.OxygenSaturation, fallback.OxygenSaturation),
		Notes:                  latest.Notes,
	}
}

// prefillNotes resumes the draft from the most recent note of each type, so
// returning to an in-progress visit shows prior entries rather than blanks.
// Notes are expected newest-first.
func (e *Engine) prefillNotes(notes []Note) {
	seen := make(map[string]bool, 5)
	for _, n := range notes {
		if seen[n.NoteType] {
			continue
		}
		seen[n.NoteType] = true
		switch n.NoteType {
		case NoteAssessment:
			e.notes.Assessment = n.Content
		case NoteDiagnosis:
			e.notes.Diagnosis = n.Content
			for _, code := range n.ICD10Codes {
				e.notes.Selections = append(e.notes.Selections, ICD10Selection{Code: code})
			}
			e.notes.ICD10Codes = strings.Join(n.ICD10Codes, ", ")
		case NoteTreatment:
			e.notes.Treatment = n.Content
		case NoteCounseling:
			e.notes.CounselingNotes = n.Content
		case NoteClosure:
			e.notes.ClosureNotes = n.Content
		}
	}
}

// CompleteCurrent persists the displayed stage's clinical artifacts and, only
// on success, marks it completed and unlocks the next stage. The nursing
// stage has its own save path (SaveVitals) and is rejected here.
func (e *Engine) CompleteCurrent(ctx context.Context) ([]Event, error) {
	e.mu.Lock()
	if e.completing {
		e.mu.Unlock()
		return nil, nil
	}
	step := e.steps[e.index]
	if step.Status == StatusCompleted {
		e.mu.Unlock()
		return nil, nil
	}
	stage := step.Stage
	// The sequencing rejection must fire before the access check: canAccess
	// also refuses a gated closure stage, but silently.
	if stage == StageClosure && !e.stageDone(StageCounseling) {
		e.mu.Unlock()
		return []Event{errNotice("the counseling session must be completed before file closure")}, nil
	}
	if !e.canAccess(stage) {
		e.mu.Unlock()
		return nil, nil
	}
	if stage == StageNursing {
		e.mu.Unlock()
		return []Event{errNotice("nursing assessment is completed by saving vital signs")}, nil
	}

	payloads, validationErr := e.stagePayloads(stage)
	if validationErr != "" {
		e.mu.Unlock()
		return []Event{errNotice(validationErr)}, nil
	}

	e.completing = true
	gen := e.gen
	patientID := e.patientID
	visitID := e.visitID
	e.mu.Unlock()

	createdVisit := false
	if visitID == "" {
		id, err := e.backend.CreateVisit(ctx, patientID, NewVisit{VisitType: "clinic"})
		if err != nil {
			e.settle(gen, false, "")
			return []Event{errNotice("could not start a visit for this patient")},
				fmt.Errorf("create visit: %w", err)
		}
		visitID = id
		createdVisit = true
	}

	// Diagnosis is always posted before Treatment; a partial failure leaves
	// the stage not completed so a re-attempt re-issues both notes.
	for _, p := range payloads {
		if err := e.backend.CreateNote(ctx, visitID, p); err != nil {
			e.settle(gen, createdVisit, visitID)
			return []Event{errNotice("could not save the " + strings.ToLower(p.NoteType) + " note")},
				fmt.Errorf("create %s note: %w", p.NoteType, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.completing = false
	if gen != e.gen {
		return nil, nil
	}
	if createdVisit {
		e.visitID = visitID
	}
	return e.completeStage(stage), nil
}

// stagePayloads assembles the typed notes a stage persists on completion.
// Returns a non-empty validation message instead of payloads when the draft
// fails the stage's validation rule. Caller holds the lock.
func (e *Engine) stagePayloads(stage Stage) ([]NewNote, string) {
	switch stage {
	case StageDoctor:
		if !e.notes.hasDiagnosis() && !e.notes.hasTreatment() {
			return nil, "nothing to save: enter a diagnosis or a treatment plan first"
		}
		var payloads []NewNote
		if e.notes.hasDiagnosis() {
			payloads = append(payloads, NewNote{
				NoteType:   NoteDiagnosis,
				Content:    strings.TrimSpace(e.notes.Diagnosis),
				ICD10Codes: e.notes.codes(),
			})
		}
		if e.notes.hasTreatment() {
			meds := make([]string, 0, len(e.notes.Medications))
			for _, m := range e.notes.Medications {
				meds = append(meds, m.format())
			}
			payloads = append(payloads, NewNote{
				NoteType:         NoteTreatment,
				Content:          e.notes.treatmentContent(),
				Medications:      meds,
				FollowUpRequired: e.notes.FollowUpRequired,
				FollowUpDate:     e.notes.FollowUpDate,
			})
		}
		return payloads, ""
	case StageCounseling:
		var parts []string
		if s := strings.TrimSpace(e.notes.MentalHealthScreening); s != "" {
			parts = append(parts, "Mental health screening: "+s)
		}
		if s := strings.TrimSpace(e.notes.CounselingNotes); s != "" {
			parts = append(parts, s)
		}
		content := strings.Join(parts, "\n\n")
		if content == "" {
			content = "Counseling session completed."
		}
		return []NewNote{{NoteType: NoteCounseling, Content: content}}, ""
	case StageClosure:
		content := strings.TrimSpace(e.notes.ClosureNotes)
		if content == "" {
			content = "Patient file closed."
		}
		return []NewNote{{NoteType: NoteClosure, Content: content}}, ""
	}
	return nil, "this stage has no completion action"
}

// settle clears the completion guard after a failed persistence attempt and,
// when the lazy visit creation did succeed, keeps the visit id so a retry
// does not create a second visit.
func (e *Engine) settle(gen uint64, createdVisit bool, visitID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completing = false
	if gen != e.gen {
		return
	}
	if createdVisit {
		e.visitID = visitID
	}
}

// SaveVitals persists the nursing form. Online, it is fail-closed like every
// other stage; offline, it queues the record locally and proceeds, because
// connectivity loss must not block a clinic visit in progress.
func (e *Engine) SaveVitals(ctx context.Context) ([]Event, error) {
	e.mu.Lock()
	if e.savingVitals {
		e.mu.Unlock()
		return nil, nil
	}
	step := e.step(StageNursing)
	if step.Status == StatusCompleted && e.vitals.Empty() {
		e.mu.Unlock()
		return nil, nil
	}
	if !e.canAccess(StageNursing) {
		e.mu.Unlock()
		return nil, nil
	}
	if e.vitals.Empty() {
		e.mu.Unlock()
		return []Event{errNotice("enter at least one vital sign or a nursing note")}, nil
	}
	e.savingVitals = true
	gen := e.gen
	patientID := e.patientID
	visitID := e.visitID
	payload := e.vitals.wire()
	wasCompleted := step.Status == StatusCompleted
	e.mu.Unlock()

	online := e.online == nil || e.online()
	if !online {
		if e.queue == nil {
			e.settleVitals(gen, false, "")
			return []Event{errNotice("offline and no local storage is available")},
				fmt.Errorf("save vitals offline: no queue configured")
		}
		if err := e.queue.Enqueue(ctx, "vital_signs", patientID, visitID, payload); err != nil {
			e.settleVitals(gen, false, "")
			return []Event{errNotice("could not store vitals for offline sync")},
				fmt.Errorf("enqueue vitals: %w", err)
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		e.savingVitals = false
		if gen != e.gen {
			return nil, nil
		}
		events := []Event{info("Saved offline. Vitals will sync when the connection returns.")}
		if !wasCompleted {
			events = append(events, e.completeStage(StageNursing)...)
		}
		return events, nil
	}

	createdVisit := false
	if visitID == "" {
		id, err := e.backend.CreateVisit(ctx, patientID, NewVisit{VisitType: "clinic"})
		if err != nil {
			e.settleVitals(gen, false, "")
			return []Event{errNotice("could not start a visit for this patient")},
				fmt.Errorf("create visit: %w", err)
		}
		visitID = id
		createdVisit = true
	}
	if err := e.backend.AddVitals(ctx, visitID, payload); err != nil {
		e.settleVitals(gen, createdVisit, visitID)
		return []Event{errNotice("could not save the vital signs")},
			fmt.Errorf("add vitals: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.savingVitals = false
	if gen != e.gen {
		return nil, nil
	}
	if createdVisit {
		e.visitID = visitID
	}
	if wasCompleted {
		return []Event{success("Vital signs saved")}, nil
	}
	return e.completeStage(StageNursing), nil
}

func (e *Engine) settleVitals(gen uint64, createdVisit bool, visitID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.savingVitals = false
	if gen != e.gen {
		return
	}
	if createdVisit {
		e.visitID = visitID
	}
}

// CreateReferral files a referral independently of stage completion.
func (e *Engine) CreateReferral(ctx context.Context, r NewReferral) ([]Event, error) {
	if strings.TrimSpace(r.Reason) == "" {
		return []Event{errNotice("a referral reason is required")}, nil
	}
	e.mu.Lock()
	if r.VisitID == "" {
		r.VisitID = e.visitID
	}
	gen := e.gen
	patientID := e.patientID
	e.mu.Unlock()

	created, err := e.backend.CreateReferral(ctx, patientID, r)
	if err != nil {
		return []Event{errNotice("could not create the referral")},
			fmt.Errorf("create referral: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return nil, nil
	}
	if created != nil {
		e.referrals = append([]Referral{*created}, e.referrals...)
	}
	return []Event{success("Referral created")}, nil
}

// AddCode appends an ICD-10 selection, deduplicated by code.
func (e *Engine) AddCode(sel ICD10Selection) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.notes.Selections {
		if existing.Code == sel.Code {
			return []Event{info(sel.Code + " is already selected")}
		}
	}
	e.notes.Selections = append(e.notes.Selections, sel)
	e.notes.ICD10Codes = strings.Join(e.notes.codes(), ", ")
	return nil
}

// RemoveCode drops an ICD-10 selection by code.
func (e *Engine) RemoveCode(code string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.notes.Selections[:0]
	for _, sel := range e.notes.Selections {
		if sel.Code != code {
			kept = append(kept, sel)
		}
	}
	e.notes.Selections = kept
	e.notes.ICD10Codes = strings.Join(e.notes.codes(), ", ")
}

// AddMedication appends a structured prescription entry.
func (e *Engine) AddMedication(m Medication) []Event {
	if strings.TrimSpace(m.Name) == "" {
		return []Event{errNotice("a medication name is required")}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notes.Medications = append(e.notes.Medications, m)
	return nil
}

// RemoveMedication drops the prescription entry at index i.
func (e *Engine) RemoveMedication(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.notes.Medications) {
		return
	}
	e.notes.Medications = append(e.notes.Medications[:i], e.notes.Medications[i+1:]...)
}

// AddInvestigation appends a free-text investigation request.
func (e *Engine) AddInvestigation(inv string) []Event {
	if strings.TrimSpace(inv) == "" {
		return []Event{errNotice("an investigation description is required")}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notes.Investigations = append(e.notes.Investigations, strings.TrimSpace(inv))
	return nil
}

// RemoveInvestigation drops the investigation at index i.
func (e *Engine) RemoveInvestigation(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.notes.Investigations) {
		return
	}
	e.notes.Investigations = append(e.notes.Investigations[:i], e.notes.Investigations[i+1:]...)
}

// completeStage marks a stage completed and works out what unlocks next.
// Caller holds the lock.
func (e *Engine) completeStage(stage Stage) []Event {
	i := e.stageIndex(stage)
	now := e.now()
	e.steps[i].Status = StatusCompleted
	e.steps[i].CompletedBy = e.userName
	e.steps[i].CompletedAt = &now

	events := []Event{success(stage.Title() + " completed")}
	if i == len(e.steps)-1 {
		events = append(events, WorkflowCompleted{VisitID: e.visitID})
		return events
	}

	next := &e.steps[i+1]
	if next.Stage == StageClosure && !e.stageDone(StageCounseling) {
		events = append(events, info("File Closure stays locked until the counseling session is completed"))
		return events
	}
	if next.Status != StatusCompleted {
		next.Status = StatusInProgress
	}
	if e.role == RoleAdministrator || next.Role == e.role {
		e.index = i + 1
		events = append(events, StageAdvanced{From: stage, To: next.Stage})
	} else {
		events = append(events, info(next.Title+" is now ready for the "+roleTitle(next.Role)))
	}
	return events
}

func (e *Engine) step(stage Stage) *Step {
	for i := range e.steps {
		if e.steps[i].Stage == stage {
			return &e.steps[i]
		}
	}
	return nil
}

func (e *Engine) stageIndex(stage Stage) int {
	for i := range e.steps {
		if e.steps[i].Stage == stage {
			return i
		}
	}
	return -1
}

func (e *Engine) stageDone(stage Stage) bool {
	s := e.step(stage)
	return s != nil && s.Status == StatusCompleted
}

func roleTitle(r Role) string {
	return strings.ReplaceAll(string(r), "_", " ")
}

// wire deep-copies the draft into its wire form so the payload stays stable
// while the request is in flight.
func (v VitalsDraft) wire() VitalSigns {
	copyInt := func(p *int) *int {
		if p == nil {
			return nil
		}
		n := *p
		return &n
	}
	copyFloat := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		f := *p
		return &f
	}
	return VitalSigns{
		BloodPressureSystolic:  copyInt(v.BloodPressureSystolic),
		BloodPressureDiastolic: copyInt(v.BloodPressureDiastolic),
		Temperature:            copyFloat(v.Temperature),
		Weight:                 copyFloat(v.Weight),
		Height:                 copyFloat(v.Height),
		Pulse:                  copyInt(v.Pulse),
		RespiratoryRate:        copyInt(v.RespiratoryRate),
		OxygenSaturation:       copyInt(v.OxygenSaturation),
		Notes:                  strings.TrimSpace(v.Notes),
	}
}
