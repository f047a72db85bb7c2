package calendar

import (
	"errors"
	"fmt"
	"strconv"

	"garage-backend/internal/models"
)

// Mode is the state of the booking drawer.
type Mode string

const (
	ModeClosed Mode = "closed"
	ModeCreate Mode = "create"
	ModeView   Mode = "view"
	ModeEdit   Mode = "edit"
)

// ErrFormMode is returned for an action the current mode does not allow.
var ErrFormMode = errors.New("calendar: action not allowed in this form mode")

// SaveKind tells the caller which write a submitted form needs.
type SaveKind string

const (
	SaveCreate SaveKind = "create"
	SaveUpdate SaveKind = "update"
)

// SaveCommand is the outcome of submitting the form.
type SaveCommand struct {
	Kind    SaveKind
	EventID string
	Input   models.EventInput
}

// Form is the create/view/edit drawer as an explicit state machine:
//
//	open(nil) -> create      open(row) -> view
//	view.edit -> edit        edit.back -> view
//	create.back -> closed    view.back -> closed
//	close -> closed from any mode, discarding the input
type Form struct {
	mode  Mode
	event *models.Event
	input models.EventInput
}

// OpenForm opens the drawer for a new booking on date, or on an existing row.
func OpenForm(event *models.Event, date string) *Form {
	if event == nil {
		return &Form{mode: ModeCreate, input: models.EventInput{Date: date, Days: 1}}
	}
	return &Form{mode: ModeView, event: event}
}

func (f *Form) Mode() Mode {
	return f.mode
}

// Input returns the fields currently held by the form.
func (f *Form) Input() models.EventInput {
	return f.input
}

// Edit switches from the read-only summary to the prefilled editor.
func (f *Form) Edit() error {
	if f.mode != ModeView {
		return fmt.Errorf("%w: edit from %s", ErrFormMode, f.mode)
	}
	f.mode = ModeEdit
	f.input = InputFromEvent(f.event)
	return nil
}

// Back returns from edit to view, or closes create and view.
func (f *Form) Back() {
	switch f.mode {
	case ModeEdit:
		f.mode = ModeView
		f.input = models.EventInput{}
	default:
		f.Close()
	}
}

// Close discards everything.
func (f *Form) Close() {
	f.mode = ModeClosed
	f.input = models.EventInput{}
}

// SetInput replaces the editable fields.
func (f *Form) SetInput(in models.EventInput) error {
	if f.mode != ModeCreate && f.mode != ModeEdit {
		return fmt.Errorf("%w: set input in %s", ErrFormMode, f.mode)
	}
	f.input = in
	return nil
}

// Submit produces the save command and closes the form.
func (f *Form) Submit() (SaveCommand, error) {
	var cmd SaveCommand
	switch f.mode {
	case ModeCreate:
		cmd = SaveCommand{Kind: SaveCreate, Input: f.input}
	case ModeEdit:
		cmd = SaveCommand{Kind: SaveUpdate, EventID: f.event.ID, Input: f.input}
	default:
		return SaveCommand{}, fmt.Errorf("%w: submit in %s", ErrFormMode, f.mode)
	}
	f.Close()
	return cmd, nil
}

// InputFromEvent prefills the editor from a stored row.
func InputFromEvent(e *models.Event) models.EventInput {
	in := models.EventInput{
		Date:         e.EventDate,
		StartTime:    e.StartTime,
		Days:         e.Duration,
		CarInfo:      e.CarInfo,
		Remark:       e.Remark,
		Employees:    append([]string{}, e.Employees...),
		Services:     append([]string{}, e.Services...),
		ClientName:   e.ClientName,
		ClientPhone:  e.ClientPhone,
		ClientRemark: e.ClientRemark,
	}
	if e.Price != nil {
		in.Price = strconv.Itoa(*e.Price)
	}
	return in
}
