package visitor

import (
	"maps"
	"slices"
	"strings"

	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"golang.org/x/text/unicode/norm"
)

// Mode says which registration a draft belongs to.
type Mode string

const (
	ModeNew       Mode = "new"
	ModeReturning Mode = "returning"
)

// Field is one draft entry.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Locked bool   `json:"locked"`
}

// Draft is a registration being filled in at the kiosk.
type Draft struct {
	mode      Mode
	visitorID ID
	values    map[string]string
}

// NewDraft returns an empty draft for a first-time visitor.
func NewDraft() *Draft {
	return &Draft{mode: ModeNew, values: make(map[string]string, len(FieldOrder))}
}

// DraftFromRecord returns a returning-visitor draft pre-filled from a matched record.
// Identity fields are locked. Visit fields start empty.
func DraftFromRecord(r *Record) *Draft {
	d := &Draft{mode: ModeReturning, visitorID: r.ID, values: make(map[string]string, len(FieldOrder))}
	for name := range identityFields {
		d.values[name] = normalize(r.Value(name))
	}
	return d
}

func (d *Draft) Mode() Mode { return d.mode }

// VisitorID is the matched visitor on a returning draft.
func (d *Draft) VisitorID() ID { return d.visitorID }

func (d *Draft) Get(name string) string {
	return d.values[name]
}

// Locked reports whether name cannot be edited on this draft.
func (d *Draft) Locked(name string) bool {
	return d.mode == ModeReturning && identityFields[name]
}

// Set stores a trimmed, NFC-normalized value.
func (d *Draft) Set(name, value string) error {
	if err := d.editable(name); err != nil {
		return err
	}
	d.values[name] = normalize(value)
	return nil
}

// Update sets several fields at once. If any of them is unknown or locked the
// draft is left unchanged.
func (d *Draft) Update(values map[string]string) error {
	names := slices.Sorted(maps.Keys(values))
	for _, name := range names {
		if err := d.editable(name); err != nil {
			return err
		}
	}
	for _, name := range names {
		d.values[name] = normalize(values[name])
	}
	return nil
}

func (d *Draft) editable(name string) error {
	if !slices.Contains(FieldOrder, name) {
		return kerrors.Invalid(name, "Unknown field "+name)
	}
	if d.Locked(name) {
		return kerrors.Invalid(name, "This field cannot be changed for a returning visitor")
	}
	return nil
}

// Fields returns every field in form order.
func (d *Draft) Fields() []Field {
	fields := make([]Field, 0, len(FieldOrder))
	for _, name := range FieldOrder {
		fields = append(fields, Field{Name: name, Value: d.values[name], Locked: d.Locked(name)})
	}
	return fields
}

// Values returns all fields as a map, empty ones included.
func (d *Draft) Values() map[string]string {
	out := make(map[string]string, len(FieldOrder))
	for _, name := range FieldOrder {
		out[name] = d.values[name]
	}
	return out
}

// Clone returns an independent copy of d.
func (d *Draft) Clone() *Draft {
	return &Draft{mode: d.mode, visitorID: d.visitorID, values: d.Values()}
}

// Reset empties the draft and turns it into a new-visitor draft.
func (d *Draft) Reset() {
	d.mode = ModeNew
	d.visitorID = ""
	d.values = make(map[string]string, len(FieldOrder))
}

// Validate checks the option fields. Free-text fields are the backend's business.
func (d *Draft) Validate() error {
	if v := d.values[FieldCategory]; v != "" && !slices.Contains(Categories, v) {
		return kerrors.Invalid(FieldCategory, "Please select a valid visitor category")
	}
	if v := d.values[FieldIDProofType]; v != "" && !slices.Contains(IDProofTypes, v) {
		return kerrors.Invalid(FieldIDProofType, "Please select a valid ID proof type")
	}
	return nil
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
