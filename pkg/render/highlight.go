package render

import (
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	highlightStyle     = "monokai"
	highlightFormatter = "terminal256"
)

// highlight writes source with ANSI syntax colours. The lexer is chosen from
// the file name, then from the detected language name.
func highlight(w io.Writer, filename, language, source string) error {
	lexer := lexers.Match(filename)
	if lexer == nil && language != "" {
		lexer = lexers.Get(language)
	}

	if lexer == nil {
		lexer = lexers.Fallback
	}

	lexer = chroma.Coalesce(lexer)

	style := styles.Get(highlightStyle)
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get(highlightFormatter)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return fmt.Errorf("tokenise %s: %w", filename, err)
	}

	err = formatter.Format(w, style, iterator)
	if err != nil {
		return fmt.Errorf("highlight %s: %w", filename, err)
	}

	return nil
}
