package annotation

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestCountAnnotations_ByColor(t *testing.T) {
	text := strings.Join([]string{
		"## Auth",
		"line",
		`<!-- USER_MEMO id="m1" color="red" : fix one -->`,
		`<!-- USER_MEMO id="m2" color="red" : fix two -->`,
		`<!-- USER_MEMO id="m3" color="blue" : why? -->`,
		"",
	}, "\n")
	c := CountAnnotations(text)
	if c.Fixes != 2 || c.Questions != 1 || c.Highlights != 0 {
		t.Errorf("counts = %+v, want {2 1 0}", c)
	}
}

func TestCountAnnotations_AllDialects(t *testing.T) {
	text := strings.Join([]string{
		"prose",
		`<!-- USER_MEMO id="m1" : single -->`,
		"<!-- USER_MEMO",
		`  id="m2"`,
		`  type="question"`,
		"-->",
		`<!-- @memo id="m3" color="#ffd93d" -->`,
		"legacy highlight",
		"<!-- @/memo -->",
		"",
	}, "\n")
	c := CountAnnotations(text)
	if c.Fixes != 1 || c.Questions != 1 || c.Highlights != 1 {
		t.Errorf("counts = %+v, want {1 1 1}", c)
	}
}

func TestCountAnnotations_InlineHighlightMarkup(t *testing.T) {
	text := strings.Join([]string{
		"a ==highlighted phrase== here",
		`b <mark style="background-color:#ffd93d">span</mark>`,
		`c <mark style="background-color:#ffd93d" data-memo-id="m1">owned span</mark>`,
		"```",
		"==inside a code fence==",
		"```",
		"",
	}, "\n")
	c := CountAnnotations(text)
	// The data-memo-id span belongs to a memo and is not counted twice;
	// markup inside the fence is ignored.
	if c.Highlights != 2 {
		t.Errorf("highlights = %d, want 2", c.Highlights)
	}
}

func TestCountAnnotations_GateAndCursorNotCounted(t *testing.T) {
	text := "body\n<!-- GATE\n  id=\"g1\"\n-->\n<!-- PLAN_CURSOR\n  taskId=\"t\"\n-->\n"
	c := CountAnnotations(text)
	if c.Fixes != 0 || c.Questions != 0 || c.Highlights != 0 {
		t.Errorf("counts = %+v, want all zero", c)
	}
}

func TestAllSections(t *testing.T) {
	text := "# Title\n## Auth\ntext\n## API\n```\n## not a heading\n```\n### sub\n"
	got := AllSections(text)
	want := []string{"Auth", "API"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sections = %v, want %v", got, want)
	}
}

func TestSectionsWithAnnotations(t *testing.T) {
	text := strings.Join([]string{
		"intro ==stray highlight== before any heading",
		"## Auth",
		"line",
		`<!-- USER_MEMO id="m1" : fix -->`,
		"## API",
		"clean",
		"## Storage",
		"a ==marked== phrase",
		"",
	}, "\n")
	got := SectionsWithAnnotations(text)
	want := []string{"Auth", "Storage"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sections = %v, want %v", got, want)
	}
}

func TestCreateCheckpoint(t *testing.T) {
	text := strings.Join([]string{
		"## Auth",
		"line",
		`<!-- USER_MEMO id="m1" color="red" : fix one -->`,
		`<!-- USER_MEMO id="m2" color="red" : fix two -->`,
		`<!-- USER_MEMO id="m3" color="blue" : why? -->`,
		"",
	}, "\n")
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	cp, updated := CreateCheckpoint(text, "c1", "first pass", now)

	if cp.Fixes != 2 || cp.Questions != 1 || cp.Highlights != 0 {
		t.Errorf("checkpoint counts = %+v", cp)
	}
	if !reflect.DeepEqual(cp.Sections, []string{"Auth"}) {
		t.Errorf("sections = %v, want [Auth]", cp.Sections)
	}
	if cp.Time != "2025-03-01T10:00:00Z" {
		t.Errorf("time = %q", cp.Time)
	}

	lines := strings.Split(strings.TrimRight(updated, "\n"), "\n")
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, checkpointOpen+" ") {
		t.Fatalf("checkpoint not appended as last line: %q", last)
	}
	// The appended line must parse back to the same snapshot.
	parsed := Split(updated)
	if len(parsed.Checkpoints) != 1 || !reflect.DeepEqual(parsed.Checkpoints[0], cp) {
		t.Errorf("appended checkpoint re-parsed as %+v, want %+v", parsed.Checkpoints, cp)
	}
}

func TestCreateCheckpoint_AppendOnly(t *testing.T) {
	base := "doc line\n<!-- CHECKPOINT id=\"c0\" time=\"2025-01-01T00:00:00Z\" note=\"old\" fixes=0 questions=0 highlights=0 sections=\"\" -->\n"
	_, updated := CreateCheckpoint(base, "c1", "new", time.Now())
	b := Split(updated)
	if len(b.Checkpoints) != 2 {
		t.Fatalf("len(checkpoints) = %d, want 2", len(b.Checkpoints))
	}
	if b.Checkpoints[0].ID != "c0" || b.Checkpoints[1].ID != "c1" {
		t.Errorf("checkpoint order = %s, %s; oldest must stay first", b.Checkpoints[0].ID, b.Checkpoints[1].ID)
	}
}
