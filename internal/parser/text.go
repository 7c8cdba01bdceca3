package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text files. Input is already the chunker's
// native form; parsing just normalizes paragraph separation.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var w sectionWriter
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				w.Paragraph(current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		w.Paragraph(current.String())
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}
	return w.String(), nil
}
