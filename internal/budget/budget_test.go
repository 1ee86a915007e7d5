package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
		{"영업시간", 4},      // one per syllable
		{"wifi 비밀번호", 5}, // 5 ascii → 1, 4 syllables → 4
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"),
		schema.UserMessage("hello world"),
	}
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	if got := EstimateMessages(msgs); got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func Test_FitLines_AllFit(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage("sys")}
	lines := []string{"- 몇 시에 열어요?", "- 영업시간 알려줘"}

	got := FitLines(fixed, lines, DefaultMaxPromptTokens)
	if len(got) != 2 {
		t.Errorf("want 2 lines, got %d", len(got))
	}
}

func Test_FitLines_DropsFromTheEnd(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.UserMessage("abcd")} // 4 + 1 + 1 = 6
	lines := []string{
		strings.Repeat("x", 16), // 4 + 1 = 5 → 11
		strings.Repeat("y", 16), // → 16
		strings.Repeat("z", 16), // → 21
	}

	got := FitLines(fixed, lines, 16)
	if len(got) != 2 || got[1] != lines[1] {
		t.Errorf("want first two lines, got %v", got)
	}
}

func Test_FitLines_FixedAloneOverBudget(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage(strings.Repeat("s", 400))}

	got := FitLines(fixed, []string{"a"}, 50)
	if len(got) != 0 {
		t.Errorf("want no lines, got %v", got)
	}
}
