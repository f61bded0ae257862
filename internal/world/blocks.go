// Package world answers structural questions about source files using
// tree-sitter grammars.
package world

import (
	"context"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.uber.org/zap"

	"codemend/internal/logging"
)

// grammar pairs a tree-sitter language with the node types that count as
// blocks for proposal windows.
type grammar struct {
	lang   func() *sitter.Language
	blocks map[string]bool
}

func set(types ...string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

var grammars = map[string]grammar{
	"go": {golang.GetLanguage, set(
		"function_declaration", "method_declaration", "func_literal", "type_declaration")},
	"python": {python.GetLanguage, set(
		"function_definition", "class_definition")},
	"javascript": {javascript.GetLanguage, set(
		"function_declaration", "function", "arrow_function", "method_definition",
		"generator_function_declaration", "class_declaration")},
	"typescript": {typescript.GetLanguage, set(
		"function_declaration", "function", "arrow_function", "method_definition",
		"generator_function_declaration", "class_declaration", "interface_declaration")},
	"rust": {rust.GetLanguage, set(
		"function_item", "closure_expression", "impl_item", "trait_item")},
}

// Supported reports whether a grammar is registered for language.
func Supported(language string) bool {
	_, ok := grammars[language]
	return ok
}

// BlockFinder locates enclosing functions, methods and classes.
type BlockFinder struct {
	logger *zap.Logger
}

// NewBlockFinder creates a finder logging under the world category.
func NewBlockFinder(logger *zap.Logger) *BlockFinder {
	return &BlockFinder{logger: logging.For(logger, logging.CategoryWorld)}
}

// EnclosingBlock returns the 1-based inclusive line range of the smallest
// block containing line. ok is false for unsupported languages, parse
// failures, or lines outside any block.
func (f *BlockFinder) EnclosingBlock(language string, lines []string, line int) (int, int, bool) {
	g, ok := grammars[language]
	if !ok || line < 1 || line > len(lines) {
		return 0, 0, false
	}

	start := time.Now()
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.lang())

	src := []byte(strings.Join(lines, "\n"))
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		f.logger.Warn("Parse failed", zap.String("language", language), zap.Error(err))
		return 0, 0, false
	}
	defer tree.Close()

	row := uint32(line - 1)
	var block *sitter.Node
	node := tree.RootNode()
	for node != nil {
		if g.blocks[node.Type()] {
			block = node
		}
		node = childContaining(node, row)
	}
	if block == nil {
		return 0, 0, false
	}

	first := int(block.StartPoint().Row) + 1
	last := min(int(block.EndPoint().Row)+1, len(lines))
	f.logger.Debug("Enclosing block",
		zap.String("language", language),
		zap.String("type", block.Type()),
		zap.Int("line", line),
		zap.Int("start", first),
		zap.Int("end", last),
		zap.Duration("took", time.Since(start)))
	return first, last, true
}

func childContaining(n *sitter.Node, row uint32) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.StartPoint().Row <= row && row <= c.EndPoint().Row {
			return c
		}
	}
	return nil
}
