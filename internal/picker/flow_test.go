package picker

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNewFlowValidatesDefault(t *testing.T) {
	t.Parallel()

	if _, err := NewFlow(nil, 0); !errors.Is(err, ErrInvalidDefault) {
		t.Fatalf("empty options: err = %v", err)
	}
	if _, err := NewFlow([]string{"a", "b"}, 2); !errors.Is(err, ErrInvalidDefault) {
		t.Fatalf("out of range default: err = %v", err)
	}
	if _, err := NewFlow([]string{"a", "b"}, -1); !errors.Is(err, ErrInvalidDefault) {
		t.Fatalf("negative default: err = %v", err)
	}
	f, err := NewFlow([]string{"a", "b"}, 1)
	if err != nil {
		t.Fatalf("valid default: %v", err)
	}
	if f.Focus() != 1 {
		t.Fatalf("focus = %d, want 1", f.Focus())
	}
}

func TestFlowMoveClamps(t *testing.T) {
	t.Parallel()

	f, _ := NewFlow([]string{"a", "b", "c"}, 0)
	f.Move(-1)
	if f.Focus() != 0 {
		t.Fatalf("focus after move up at top = %d", f.Focus())
	}
	f.Move(1)
	f.Move(1)
	f.Move(1)
	if f.Focus() != 2 {
		t.Fatalf("focus after moving past bottom = %d", f.Focus())
	}
}

func TestFlowConfirmAndCancel(t *testing.T) {
	t.Parallel()

	f, _ := NewFlow([]string{"a", "b"}, 0)
	if _, ok := f.Result(); ok {
		t.Fatal("result available before confirm")
	}
	f.Move(1)
	f.Confirm()
	idx, ok := f.Result()
	if !ok || idx != 1 {
		t.Fatalf("result = %d %v", idx, ok)
	}
	// Terminal state is sticky.
	f.Move(-1)
	f.Cancel()
	if idx, ok := f.Result(); !ok || idx != 1 {
		t.Fatalf("result mutated after confirm: %d %v", idx, ok)
	}

	g, _ := NewFlow([]string{"a", "b"}, 0)
	g.Cancel()
	if !g.Cancelled() {
		t.Fatal("not cancelled")
	}
	g.Confirm()
	if _, ok := g.Result(); ok {
		t.Fatal("confirm after cancel produced a result")
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPickModelKeys(t *testing.T) {
	t.Parallel()

	flow, _ := NewFlow([]string{"one", "two", "three"}, 0)
	m := newPickModel("Pick one", flow)

	m.Update(keyPress("j"))
	m.Update(keyPress("down"))
	if flow.Focus() != 2 {
		t.Fatalf("focus = %d, want 2", flow.Focus())
	}
	m.Update(keyPress("up"))
	_, cmd := m.Update(keyPress("enter"))
	if cmd == nil {
		t.Fatal("enter did not quit")
	}
	if idx, ok := flow.Result(); !ok || idx != 1 {
		t.Fatalf("result = %d %v", idx, ok)
	}
}

func TestPickModelCancelKeys(t *testing.T) {
	t.Parallel()

	for _, k := range []string{"q", "esc"} {
		flow, _ := NewFlow([]string{"one", "two"}, 0)
		m := newPickModel("Pick one", flow)
		_, cmd := m.Update(keyPress(k))
		if cmd == nil {
			t.Fatalf("%s did not quit", k)
		}
		if !flow.Cancelled() {
			t.Fatalf("%s did not cancel", k)
		}
	}
}

func TestPickModelViewShowsFocusIndicator(t *testing.T) {
	t.Parallel()

	flow, _ := NewFlow([]string{"first option\ndetail", "second option\ndetail"}, 1)
	m := newPickModel("Pick one", flow)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	view := m.View()
	if !strings.Contains(view, "▸") {
		t.Fatalf("no focus indicator in view:\n%s", view)
	}
	if !strings.Contains(view, "Pick one") {
		t.Fatalf("title missing from view:\n%s", view)
	}
}

func TestVisibleRangeFollowsFocus(t *testing.T) {
	t.Parallel()

	options := make([]string, 20)
	for i := range options {
		options[i] = "option"
	}
	flow, _ := NewFlow(options, 0)
	m := newPickModel("Pick", flow)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})

	first, last := m.visibleRange(1)
	if first != 0 {
		t.Fatalf("initial window starts at %d", first)
	}
	for i := 0; i < 19; i++ {
		flow.Move(1)
	}
	first, last = m.visibleRange(1)
	if last != 20 {
		t.Fatalf("window after moving to bottom = [%d, %d)", first, last)
	}
	if flow.Focus() < first || flow.Focus() >= last {
		t.Fatalf("focus %d outside window [%d, %d)", flow.Focus(), first, last)
	}
}
