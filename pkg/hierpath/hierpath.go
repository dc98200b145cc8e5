// Package hierpath parses hierarchical references of the form
// top.child.grandchild[port][index].
package hierpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// PathLexer tokenizes hierarchical references.
var PathLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z0-9_\-]+`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
})

type pathAST struct {
	Blocks []string `parser:"( @Ident ( Dot @Ident )* )?"`
	Port   *string  `parser:"( LBracket @Ident RBracket )?"`
	Index  *string  `parser:"( LBracket @Ident RBracket )?"`
}

var parser = participle.MustBuild[pathAST](
	participle.Lexer(PathLexer),
	participle.UseLookahead(2),
)

// Ref is a parsed hierarchical reference.
type Ref struct {
	// Blocks are the instance names from the outermost block inwards.
	Blocks []string
	// Port is empty when the reference names a block.
	Port string
	// Index is the signal index; HasIndex reports whether one was given.
	Index    int
	HasIndex bool
}

// Parse parses s. The empty string is the empty reference.
func Parse(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, nil
	}
	ast, err := parser.ParseString("", s)
	if err != nil {
		return Ref{}, fmt.Errorf("hierpath: %q: %w", s, err)
	}
	var ref Ref
	if len(ast.Blocks) > 0 {
		ref.Blocks = ast.Blocks
	}
	if ast.Port != nil {
		ref.Port = *ast.Port
	}
	if ast.Index != nil {
		n, err := strconv.Atoi(*ast.Index)
		if err != nil || n < 0 {
			return Ref{}, fmt.Errorf("hierpath: %q: index %q is not a signal index", s, *ast.Index)
		}
		ref.Index, ref.HasIndex = n, true
	}
	return ref, nil
}

// BlockPath returns the dot-joined block part of the reference.
func (r Ref) BlockPath() string { return strings.Join(r.Blocks, ".") }

// String renders the reference in its parseable form.
func (r Ref) String() string {
	var sb strings.Builder
	sb.WriteString(r.BlockPath())
	if r.Port != "" {
		sb.WriteString("[" + r.Port + "]")
		if r.HasIndex {
			sb.WriteString("[" + strconv.Itoa(r.Index) + "]")
		}
	}
	return sb.String()
}

// PortPath formats block.path[port].
func PortPath(block, port string) string { return block + "[" + port + "]" }
