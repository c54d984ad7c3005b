package workflow

import (
	"strings"
	"time"
)

// Stage identifies one step of the fixed five-step clinical pipeline.
type Stage string

const (
	StageRegistration Stage = "registration"
	StageNursing      Stage = "nursing"
	StageDoctor       Stage = "doctor"
	StageCounseling   Stage = "counseling"
	StageClosure      Stage = "closure"
)

// StageOrder is the fixed pipeline order. It is never reordered at runtime.
var StageOrder = [5]Stage{
	StageRegistration,
	StageNursing,
	StageDoctor,
	StageCounseling,
	StageClosure,
}

// Title returns the display title for a stage.
func (s Stage) Title() string {
	switch s {
	case StageRegistration:
		return "Registration"
	case StageNursing:
		return "Nursing Assessment"
	case StageDoctor:
		return "Doctor Consultation"
	case StageCounseling:
		return "Counseling Session"
	case StageClosure:
		return "File Closure"
	}
	return string(s)
}

// StageStatus is the completion state of one stage within a visit.
type StageStatus string

const (
	StatusPending    StageStatus = "pending"
	StatusInProgress StageStatus = "in-progress"
	StatusCompleted  StageStatus = "completed"
)

// Role is the closed set of acting-user roles.
type Role string

const (
	RoleClerk         Role = "clerk"
	RoleNurse         Role = "nurse"
	RoleDoctor        Role = "doctor"
	RoleSocialWorker  Role = "social_worker"
	RoleAdministrator Role = "administrator"
)

// stageOwner maps each stage to the single role authorized to act on it.
// Administrators bypass this table entirely.
var stageOwner = map[Stage]Role{
	StageRegistration: RoleClerk,
	StageNursing:      RoleNurse,
	StageDoctor:       RoleDoctor,
	StageCounseling:   RoleSocialWorker,
	StageClosure:      RoleDoctor,
}

// OwningRole returns the role responsible for a stage.
func OwningRole(s Stage) Role {
	return stageOwner[s]
}

// Step is the engine's live record for one stage of the active visit.
type Step struct {
	Stage       Stage
	Title       string
	Role        Role
	Status      StageStatus
	CompletedBy string
	CompletedAt *time.Time
}

func newSteps(now time.Time) []Step {
	steps := make([]Step, 0, len(StageOrder))
	for _, s := range StageOrder {
		step := Step{Stage: s, Title: s.Title(), Role: stageOwner[s], Status: StatusPending}
		if s == StageRegistration {
			// Check-in happens before this screen is reached.
			step.Status = StatusCompleted
			step.CompletedBy = "System"
			t := now
			step.CompletedAt = &t
		}
		steps = append(steps, step)
	}
	return steps
}

// Medication is one structured prescription entry.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

func (m Medication) format() string {
	parts := []string{m.Name}
	for _, p := range []string{m.Dosage, m.Frequency, m.Duration} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ICD10Selection is one diagnostic code chosen during the doctor stage.
type ICD10Selection struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// VitalsDraft accumulates the nursing form. Nil fields were left blank.
type VitalsDraft struct {
	BloodPressureSystolic  *int
	BloodPressureDiastolic *int
	Temperature            *float64
	Weight                 *float64
	Height                 *float64
	Pulse                  *int
	RespiratoryRate        *int
	OxygenSaturation       *int
	Notes                  string
}

// Empty reports whether no vital field and no nursing note has been entered.
func (v VitalsDraft) Empty() bool {
	return v.BloodPressureSystolic == nil &&
		v.BloodPressureDiastolic == nil &&
		v.Temperature == nil &&
		v.Weight == nil &&
		v.Height == nil &&
		v.Pulse == nil &&
		v.RespiratoryRate == nil &&
		v.OxygenSaturation == nil &&
		strings.TrimSpace(v.Notes) == ""
}

// NotesDraft accumulates free-text and structured entries across stages. It is
// materialized into discrete typed notes only at stage completion.
type NotesDraft struct {
	Assessment            string
	Diagnosis             string
	ICD10Codes            string // comma-joined, derived from Selections
	Selections            []ICD10Selection
	Treatment             string
	Medications           []Medication
	Investigations        []string
	ReferralText          string
	FollowUpRequired      bool
	FollowUpDate          string
	MentalHealthScreening string
	CounselingNotes       string
	ClosureNotes          string
}

func (n NotesDraft) codes() []string {
	codes := make([]string, 0, len(n.Selections))
	for _, sel := range n.Selections {
		codes = append(codes, sel.Code)
	}
	return codes
}

func (n NotesDraft) hasDiagnosis() bool {
	return strings.TrimSpace(n.Diagnosis) != "" || len(n.Selections) > 0
}

func (n NotesDraft) hasTreatment() bool {
	return strings.TrimSpace(n.Treatment) != "" ||
		len(n.Medications) > 0 ||
		len(n.Investigations) > 0 ||
		strings.TrimSpace(n.ReferralText) != ""
}

// treatmentContent renders the treatment note body from the structured draft.
func (n NotesDraft) treatmentContent() string {
	var b strings.Builder
	if t := strings.TrimSpace(n.Treatment); t != "" {
		b.WriteString(t)
	}
	if len(n.Medications) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Medications:")
		for _, m := range n.Medications {
			b.WriteString("\n- ")
			b.WriteString(m.format())
		}
	}
	if len(n.Investigations) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Investigations:")
		for _, inv := range n.Investigations {
			b.WriteString("\n- ")
			b.WriteString(inv)
		}
	}
	if r := strings.TrimSpace(n.ReferralText); r != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Referral: ")
		b.WriteString(r)
	}
	return b.String()
}
