package filter

import "testing"

func TestApplyWholeWordOnly(t *testing.T) {
	t.Parallel()

	rules := []Rule{{Old: "token", New: "food"}}

	if got := Apply("the token is", rules); got != "the food is" {
		t.Fatalf("expected whole-word replacement, got %q", got)
	}
	if got := Apply("tokenized", rules); got != "tokenized" {
		t.Fatalf("embedded occurrence must stay untouched, got %q", got)
	}
	if got := Apply("my_token", rules); got != "my_token" {
		t.Fatalf("underscore joins words, got %q", got)
	}
}

func TestApplyReplacesEveryOccurrence(t *testing.T) {
	t.Parallel()

	rules := []Rule{{Old: "secret", New: "[redacted]"}}
	got := Apply("secret plans: the secret stays secret", rules)
	want := "[redacted] plans: the [redacted] stays [redacted]"
	if got != want {
		t.Fatalf("Apply() = %q, want %q", got, want)
	}
}

func TestApplyCaseSensitive(t *testing.T) {
	t.Parallel()

	rules := []Rule{{Old: "Acme", New: "Vendor"}}
	if got := Apply("Acme met acme", rules); got != "Vendor met acme" {
		t.Fatalf("matching must be case sensitive, got %q", got)
	}
}

func TestApplyEarlierRuleWins(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{Old: "alpha", New: "first"},
		{Old: "alpha", New: "second"},
	}
	if got := Apply("alpha", rules); got != "first" {
		t.Fatalf("first rule in order should win, got %q", got)
	}
}

func TestApplySinglePassDoesNotCascade(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{Old: "token", New: "food"},
		{Old: "food", New: "drink"},
	}
	if got := Apply("token and food", rules); got != "food and drink" {
		t.Fatalf("replacement output must not be re-scanned, got %q", got)
	}
}

func TestApplyEmptyInputs(t *testing.T) {
	t.Parallel()

	if got := Apply("", []Rule{{Old: "a", New: "b"}}); got != "" {
		t.Fatalf("empty text should stay empty, got %q", got)
	}
	if got := Apply("unchanged", nil); got != "unchanged" {
		t.Fatalf("nil table should be a passthrough, got %q", got)
	}
}
