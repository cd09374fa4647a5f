package action_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/felixgeelhaar/domguard/domain/action"
)

// recordingTarget captures style writes keyed by selector and property.
type recordingTarget struct {
	styles   map[action.Selector]map[action.Property]string
	feedback []string
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{styles: make(map[action.Selector]map[action.Property]string)}
}

func (r *recordingTarget) SetStyle(sel action.Selector, prop action.Property, value string) error {
	if r.styles[sel] == nil {
		r.styles[sel] = make(map[action.Property]string)
	}
	r.styles[sel][prop] = value
	return nil
}

func (r *recordingTarget) Feedback(label string) error {
	r.feedback = append(r.feedback, label)
	return nil
}

func noop(action.Target, action.Params) error { return nil }

func TestNewRegistry_Validation(t *testing.T) {
	t.Parallel()

	catchAll := action.Spec{ID: "any", Mutate: noop}
	specific := action.Spec{ID: "specific", Signatures: []action.Signature{action.Contains("x")}, Mutate: noop}

	tests := []struct {
		name    string
		specs   []action.Spec
		wantErr error
	}{
		{"empty", nil, action.ErrEmptyRegistry},
		{"missing id", []action.Spec{{Mutate: noop}}, action.ErrInvalidSpec},
		{"missing mutation", []action.Spec{{ID: "x"}}, action.ErrInvalidSpec},
		{"duplicate", []action.Spec{specific, specific, catchAll}, action.ErrDuplicateAction},
		{"no catch-all last", []action.Spec{catchAll, specific}, action.ErrNoCatchAll},
		{"valid", []action.Spec{specific, catchAll}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := action.NewRegistry(tt.specs...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewRegistry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultRegistry_Order(t *testing.T) {
	t.Parallel()

	r := action.DefaultRegistry()

	want := []action.ID{
		action.RecolorButtons,
		action.RecolorBackground,
		action.HideImages,
		action.ShowImages,
		action.ResizeImages,
		action.ChangeFontSize,
		action.MakeBold,
		action.Italicize,
		action.RecolorText,
		action.HideButtons,
		action.ShowButtons,
		action.GenericFeedback,
	}
	if got := r.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	if r.CatchAll().ID != action.GenericFeedback {
		t.Errorf("CatchAll() = %s, want %s", r.CatchAll().ID, action.GenericFeedback)
	}
}

func TestRegistry_ListIsACopy(t *testing.T) {
	t.Parallel()

	r := action.DefaultRegistry()
	list := r.List()
	list[0] = action.Spec{ID: "mutated"}

	if first := r.List()[0].ID; first != action.RecolorButtons {
		t.Errorf("registry mutated through List(): first = %s", first)
	}
}

func TestRegistry_ApplyUnknown(t *testing.T) {
	t.Parallel()

	r := action.DefaultRegistry()
	err := r.Apply("format_disk", action.Params{}, newRecordingTarget())
	if !errors.Is(err, action.ErrUnknownAction) {
		t.Errorf("Apply() error = %v, want ErrUnknownAction", err)
	}
}

func TestRegistry_ApplyNilTarget(t *testing.T) {
	t.Parallel()

	r := action.DefaultRegistry()
	if err := r.Apply(action.MakeBold, action.Params{}, nil); !errors.Is(err, action.ErrNilTarget) {
		t.Errorf("Apply() error = %v, want ErrNilTarget", err)
	}
}

func TestRegistry_ApplyMutations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id     action.ID
		params action.Params
		sel    action.Selector
		prop   action.Property
		want   string
	}{
		{action.RecolorButtons, action.WithColor("red"), action.SelectorButtons, action.PropBackgroundColor, "red"},
		{action.RecolorBackground, action.WithColor("teal"), action.SelectorBody, action.PropBackgroundColor, "teal"},
		{action.HideImages, action.Params{}, action.SelectorImages, action.PropDisplay, "none"},
		{action.ShowImages, action.Params{}, action.SelectorImages, action.PropDisplay, "block"},
		{action.ResizeImages, action.WithSize("50px"), action.SelectorImages, action.PropWidth, "50px"},
		{action.ChangeFontSize, action.WithSize("20px"), action.SelectorBody, action.PropFontSize, "20px"},
		{action.MakeBold, action.Params{}, action.SelectorBody, action.PropFontWeight, "bold"},
		{action.Italicize, action.Params{}, action.SelectorBody, action.PropFontStyle, "italic"},
		{action.RecolorText, action.WithColor("navy"), action.SelectorBody, action.PropColor, "navy"},
		{action.HideButtons, action.Params{}, action.SelectorButtons, action.PropDisplay, "none"},
		{action.ShowButtons, action.Params{}, action.SelectorButtons, action.PropDisplay, "block"},
	}

	r := action.DefaultRegistry()
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			t.Parallel()

			target := newRecordingTarget()
			if err := r.Apply(tt.id, tt.params, target); err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got := target.styles[tt.sel][tt.prop]; got != tt.want {
				t.Errorf("style %s %s = %q, want %q", tt.sel, tt.prop, got, tt.want)
			}
		})
	}
}

func TestRegistry_ApplyNormalizesParams(t *testing.T) {
	t.Parallel()

	r := action.DefaultRegistry()
	target := newRecordingTarget()

	// A hand-built Params value carrying free text must not reach the target.
	err := r.Apply(action.RecolorButtons, action.Params{Color: "red; background-image: url(x)"}, target)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := target.styles[action.SelectorButtons][action.PropBackgroundColor]; got != string(action.DefaultButtonColor) {
		t.Errorf("color = %q, want default %q", got, action.DefaultButtonColor)
	}
}

func TestRegistry_Idempotent(t *testing.T) {
	t.Parallel()

	r := action.DefaultRegistry()
	for _, spec := range r.List() {
		if spec.IsCatchAll() {
			continue
		}
		once := newRecordingTarget()
		twice := newRecordingTarget()

		if err := r.Apply(spec.ID, spec.Default, once); err != nil {
			t.Fatalf("Apply(%s) error = %v", spec.ID, err)
		}
		for i := 0; i < 2; i++ {
			if err := r.Apply(spec.ID, spec.Default, twice); err != nil {
				t.Fatalf("Apply(%s) error = %v", spec.ID, err)
			}
		}
		if !reflect.DeepEqual(once.styles, twice.styles) {
			t.Errorf("%s not idempotent: once=%v twice=%v", spec.ID, once.styles, twice.styles)
		}
	}
}

func TestRegistry_GenericFeedbackUsesLabel(t *testing.T) {
	t.Parallel()

	r := action.DefaultRegistry()
	target := newRecordingTarget()

	if err := r.Apply(action.GenericFeedback, action.WithLabel("  do a barrel roll\n"), target); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(target.feedback) != 1 || target.feedback[0] != "do a barrel roll" {
		t.Errorf("feedback = %v, want [do a barrel roll]", target.feedback)
	}
	if len(target.styles) != 0 {
		t.Errorf("generic feedback changed styles: %v", target.styles)
	}
}

func TestRegistry_RenderUnknown(t *testing.T) {
	t.Parallel()

	r := action.DefaultRegistry()
	if _, err := r.Render("nope", action.Params{}); !errors.Is(err, action.ErrUnknownAction) {
		t.Errorf("Render() error = %v, want ErrUnknownAction", err)
	}
}
