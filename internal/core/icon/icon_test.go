package icon

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestLabelBoundaries(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      string
	}{
		{3661000 * time.Millisecond, "1h"},
		{65000 * time.Millisecond, "1m"},
		{5000 * time.Millisecond, "5"},
		{5999 * time.Millisecond, "5"},
		{59 * time.Second, "59"},
		{60 * time.Second, "1m"},
		{time.Hour, "1h"},
		{99 * time.Hour, "99h"},
		{999 * time.Millisecond, "0"},
		{0, "0"},
		{-3 * time.Second, "0"},
	}

	for _, tt := range tests {
		if got := Label(tt.remaining); got != tt.want {
			t.Fatalf("Label(%v) = %q, want %q", tt.remaining, got, tt.want)
		}
	}
}

func TestLabelMonotonic(t *testing.T) {
	magnitude := func(label string) int {
		switch {
		case strings.HasSuffix(label, "h"):
			n, _ := strconv.Atoi(strings.TrimSuffix(label, "h"))
			return n * 3600
		case strings.HasSuffix(label, "m"):
			n, _ := strconv.Atoi(strings.TrimSuffix(label, "m"))
			return n * 60
		default:
			n, _ := strconv.Atoi(label)
			return n
		}
	}

	previous := magnitude(Label(2*time.Hour + 30*time.Minute))
	for remaining := 2*time.Hour + 30*time.Minute; remaining >= -time.Second; remaining -= 700 * time.Millisecond {
		current := magnitude(Label(remaining))
		if current > previous {
			t.Fatalf("label magnitude increased at %v: %d > %d", remaining, current, previous)
		}
		previous = current
	}
}

type fakeRenderer struct {
	rendered []string
	restored int
	err      error
}

func (renderer *fakeRenderer) Render(label string) error {
	renderer.rendered = append(renderer.rendered, label)
	return renderer.err
}

func (renderer *fakeRenderer) Restore() error {
	renderer.restored++
	return renderer.err
}

type fakeBadge struct {
	texts []string
}

func (badge *fakeBadge) SetBadge(text string) error {
	badge.texts = append(badge.texts, text)
	return nil
}

func TestPresenterRendersAndSkipsDuplicates(t *testing.T) {
	renderer := &fakeRenderer{}
	badge := &fakeBadge{}
	presenter := NewPresenter(renderer, badge)

	presenter.Show(5 * time.Minute)
	presenter.Show(5*time.Minute - 10*time.Second)
	presenter.Show(4 * time.Minute)

	if got := strings.Join(renderer.rendered, ","); got != "5m,4m" {
		t.Fatalf("rendered = %s, want 5m,4m", got)
	}
	if len(badge.texts) != 0 {
		t.Fatalf("badge used without failure: %v", badge.texts)
	}
	if presenter.Current() != "4m" {
		t.Fatalf("Current() = %q", presenter.Current())
	}

	presenter.Reset()
	presenter.Reset()
	if renderer.restored != 1 {
		t.Fatalf("restored = %d, want 1", renderer.restored)
	}
}

func TestPresenterFallsBackToBadge(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("no canvas")}
	badge := &fakeBadge{}
	presenter := NewPresenter(renderer, badge)

	presenter.Show(42 * time.Second)
	presenter.Reset()

	if got := strings.Join(badge.texts, ","); got != "42," {
		t.Fatalf("badge texts = %q, want %q", got, "42,")
	}
}

func TestPresenterWithoutCollaborators(t *testing.T) {
	presenter := NewPresenter(nil, nil)
	presenter.Show(time.Second)
	presenter.Reset()
}
