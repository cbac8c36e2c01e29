package matcher

import (
	"fmt"
	"testing"
)

var benchPaths = func() []string {
	paths := make([]string, 0, 300)
	for i := range 100 {
		paths = append(paths,
			fmt.Sprintf("docs/section-%d/page.md", i),
			fmt.Sprintf("drafts/idea-%d.md", i),
			fmt.Sprintf("assets/img-%d.png", i),
		)
	}
	return paths
}()

func BenchmarkGlobMatch(b *testing.B) {
	m, err := New(Glob, "**/*.md")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, p := range benchPaths {
			m.Match(p)
		}
	}
}

func BenchmarkFilterSelect(b *testing.B) {
	f, err := NewFilter([]string{"**/*.md"}, []string{"drafts/**"})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Select(benchPaths...)
	}
}
