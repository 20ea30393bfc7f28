package keyword

import "testing"

func TestDetectDefaultKeywords(t *testing.T) {
	d := New(nil)

	cases := []struct {
		text string
		want bool
	}{
		{"Please remember this for later", true},
		{"Use the `remember` function", false},
		{"```ts\nremember\n```", false},
		{"I remembered it yesterday", false},
		{"don't forget to check the logs", true},
		{"nothing notable here", false},
	}

	for _, c := range cases {
		if got := d.Detect(c.text); got != c.want {
			t.Errorf("Detect(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestDetectCustomKeywords(t *testing.T) {
	d := New([]string{"pin this"})

	if !d.Detect("please pin this in the sidebar") {
		t.Error("expected custom keyword to match")
	}
	if d.Detect("pinning things is fun") {
		t.Error("expected word-boundary match to reject partial overlap")
	}
}

func TestDetectEmptySetNeverMatches(t *testing.T) {
	d := Detector{}
	if d.Detect("remember this") {
		t.Error("zero-value detector must never match")
	}
}

func TestStripCodeOrder(t *testing.T) {
	text := "```\nremember\n```\nand `remember` again"
	stripped := stripCode(text)
	if stripped != "\nand  again" {
		t.Errorf("stripCode = %q", stripped)
	}
}
