package search

import "testing"

func TestCompile(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  string
		ok    bool
	}{
		{"simple", "hello world", `"hello" OR "world"`, true},
		{"generic type syntax", "Result<T, E>", `"Result"`, true},
		{"quoted", `"quoted"`, `"quoted"`, true},
		{"prefix star", "test*", `"test"`, true},
		{"parens", "(parentheses)", `"parentheses"`, true},
		{"reserved words dropped", "cat AND dog OR NOT fish NEAR bird", `"cat" OR "dog" OR "fish" OR "bird"`, true},
		{"short runs dropped", "a b go", `"go"`, true},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
		{"all reserved", "and or not near", "", false},
	}

	for _, c := range cases {
		got, ok := Compile(c.query)
		if ok != c.ok {
			t.Errorf("%s: Compile(%q) ok = %v, want %v", c.name, c.query, ok, c.ok)
			continue
		}
		if got != c.want {
			t.Errorf("%s: Compile(%q) = %q, want %q", c.name, c.query, got, c.want)
		}
	}
}
