package atomese

import (
	"strings"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/space"
)

// Format prints h as an indented multi-line form.
func Format(r space.Reader, h atom.Handle) string {
	var b strings.Builder
	write(&b, r, h, 0, true)
	return b.String()
}

// Short prints h on one line.
func Short(r space.Reader, h atom.Handle) string {
	var b strings.Builder
	write(&b, r, h, 0, false)
	return b.String()
}

// ShortAll prints each handle with Short.
func ShortAll(r space.Reader, hs []atom.Handle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = Short(r, h)
	}
	return out
}

func write(b *strings.Builder, r space.Reader, h atom.Handle, depth int, indent bool) {
	a, ok := r.Get(h)
	if !ok {
		b.WriteString("(<missing> ")
		b.WriteString(h.String())
		b.WriteByte(')')
		return
	}
	b.WriteByte('(')
	b.WriteString(r.Oracle().TypeName(a.Type))
	if !a.IsLink() {
		b.WriteByte(' ')
		b.WriteString(Quote(a.Name))
		b.WriteByte(')')
		return
	}
	for _, c := range a.Out {
		if indent {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat("  ", depth+1))
		} else {
			b.WriteByte(' ')
		}
		write(b, r, c, depth+1, indent)
	}
	b.WriteByte(')')
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

// Quote renders name as an atomese string literal.
func Quote(name string) string {
	return `"` + quoter.Replace(name) + `"`
}
