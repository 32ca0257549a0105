package platform

import (
	"fmt"
	"image/color"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/go-drift/permissionx/pkg/errors"
	"github.com/go-drift/permissionx/pkg/permissionx"
)

const (
	dialogChannelName       = "permissionx/dialog"
	dialogEventsChannelName = "permissionx/dialog/events"
)

// Dialogs renders permissionx dialogs with native UI.
var Dialogs = &DialogService{
	channel: NewMethodChannel(dialogChannelName),
	events:  NewStream(NewEventChannel(dialogEventsChannelName), parseDialogEvent),
	open:    make(map[string]*NativeDialog),
}

// DialogAction is a user choice reported by the native dialog.
type DialogAction string

const (
	DialogPositive DialogAction = "positive"
	DialogNegative DialogAction = "negative"
	DialogCancel   DialogAction = "cancel"
)

type dialogEvent struct {
	ID     string
	Action DialogAction
}

// DialogService implements permissionx.DialogFactory over platform channels.
type DialogService struct {
	channel *MethodChannel
	events  *Stream[dialogEvent]

	mu   sync.Mutex
	open map[string]*NativeDialog
}

func init() {
	registerBuiltinInit(func() {
		Dialogs.events.Listen(Dialogs.deliver)
	})
}

// NewDialog implements permissionx.DialogFactory.
func (s *DialogService) NewDialog(spec permissionx.DialogSpec) permissionx.Dialog {
	return &NativeDialog{
		service:  s,
		id:       uuid.NewString(),
		spec:     spec,
		positive: &dialogButton{},
		negative: &dialogButton{},
	}
}

// Open returns the ids of the dialogs currently shown.
func (s *DialogService) Open() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *DialogService) deliver(ev dialogEvent) {
	s.mu.Lock()
	d := s.open[ev.ID]
	if d != nil && ev.Action == DialogCancel && d.onCancel == nil {
		// Not cancelable: the dialog stays up.
		d = nil
	} else {
		delete(s.open, ev.ID)
	}
	s.mu.Unlock()
	if d == nil {
		// Events for dismissed dialogs can still be in flight.
		return
	}
	deliver(func() { d.fire(ev.Action) })
}

type dialogButton struct {
	handler func()
}

func (b *dialogButton) OnClick(handler func()) { b.handler = handler }

// NativeDialog is a permissionx.Dialog rendered by the native side.
//
// Its negative control always exists. The native side hides the button when
// DialogSpec has no negative text, and the Go side fires it when the dialog
// cannot be shown so the request never waits on an invisible dialog.
type NativeDialog struct {
	service  *DialogService
	id       string
	spec     permissionx.DialogSpec
	positive *dialogButton
	negative *dialogButton
	onCancel func()
}

// ID returns the identifier shared with the native side.
func (d *NativeDialog) ID() string { return d.id }

// PermissionsToRequest implements permissionx.Dialog.
func (d *NativeDialog) PermissionsToRequest() []string { return slices.Clone(d.spec.Permissions) }

// PositiveControl implements permissionx.Dialog.
func (d *NativeDialog) PositiveControl() permissionx.Control { return d.positive }

// NegativeControl implements permissionx.Dialog.
func (d *NativeDialog) NegativeControl() permissionx.Control { return d.negative }

// OnCancel implements permissionx.Cancelable.
func (d *NativeDialog) OnCancel(handler func()) { d.onCancel = handler }

// Show implements permissionx.Dialog.
func (d *NativeDialog) Show() {
	d.service.mu.Lock()
	d.service.open[d.id] = d
	d.service.mu.Unlock()

	_, err := d.service.channel.Invoke("show", map[string]any{
		"id":           d.id,
		"permissions":  d.spec.Permissions,
		"message":      d.spec.Message,
		"positiveText": d.spec.PositiveText,
		"negativeText": d.spec.NegativeText,
		"lightTint":    tintHex(d.spec.Tint.Light),
		"darkTint":     tintHex(d.spec.Tint.Dark),
		"cancelable":   d.onCancel != nil,
	})
	if err != nil {
		d.service.report("dialog.show", err)
		d.service.mu.Lock()
		_, stillOpen := d.service.open[d.id]
		delete(d.service.open, d.id)
		d.service.mu.Unlock()
		if stillOpen {
			deliver(func() { d.fire(DialogNegative) })
		}
	}
}

// Dismiss implements permissionx.Dialog.
func (d *NativeDialog) Dismiss() {
	d.service.mu.Lock()
	delete(d.service.open, d.id)
	d.service.mu.Unlock()

	if _, err := d.service.channel.Invoke("dismiss", map[string]any{"id": d.id}); err != nil {
		d.service.report("dialog.dismiss", err)
	}
}

func (d *NativeDialog) fire(action DialogAction) {
	var handler func()
	switch action {
	case DialogPositive:
		handler = d.positive.handler
	case DialogNegative:
		handler = d.negative.handler
	case DialogCancel:
		handler = d.onCancel
	}
	if handler != nil {
		handler()
	}
}

func (s *DialogService) report(op string, err error) {
	errors.Report(&errors.PermissionError{
		Op:      op,
		Kind:    errors.KindPlatform,
		Channel: dialogChannelName,
		Err:     err,
	})
}

// tintHex encodes c as #rrggbbaa, or nil for the renderer default.
func tintHex(c color.Color) any {
	if c == nil {
		return nil
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

func parseDialogEvent(data any) (dialogEvent, error) {
	m := parseMap(data)
	ev := dialogEvent{ID: parseString(m["id"]), Action: DialogAction(parseString(m["action"]))}
	switch {
	case ev.ID == "":
		return dialogEvent{}, &errors.ParseError{Channel: dialogEventsChannelName, DataType: "dialogEvent", Got: data}
	case ev.Action != DialogPositive && ev.Action != DialogNegative && ev.Action != DialogCancel:
		return dialogEvent{}, &errors.ParseError{Channel: dialogEventsChannelName, DataType: "DialogAction", Got: m["action"]}
	}
	return ev, nil
}
