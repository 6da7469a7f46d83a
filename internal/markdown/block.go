package markdown

import (
	"regexp"
	"strings"
)

// Group 1 is the language, group 2 the code.
var codeBlockRegexp = regexp.MustCompile("(?sm)^```([a-zA-Z0-9_+-]*)\\n(.*?)^```")

// Segment of a reply: either plain text or a fenced code block.
type Segment struct {
	Text     string
	Code     bool
	Language string
}

// Split the content into text and code segments, in order. Empty text segments are dropped.
func Split(content string) []*Segment {
	var segments []*Segment
	addText := func(text string) {
		if strings.TrimSpace(text) != "" {
			segments = append(segments, &Segment{Text: text})
		}
	}
	lastEnd := 0
	for _, match := range codeBlockRegexp.FindAllStringSubmatchIndex(content, -1) {
		addText(content[lastEnd:match[0]])
		segments = append(segments, &Segment{
			Text:     strings.Trim(content[match[4]:match[5]], "\n"),
			Code:     true,
			Language: content[match[2]:match[3]],
		})
		lastEnd = match[1]
	}
	addText(content[lastEnd:])
	return segments
}

// CodeBlock fenced in a reply.
type CodeBlock struct {
	Language string
	Code     string
}

// ParseCodeBlocks returns the fenced code blocks of the content, in order.
func ParseCodeBlocks(content string) []*CodeBlock {
	var blocks []*CodeBlock
	for _, segment := range Split(content) {
		if segment.Code {
			blocks = append(blocks, &CodeBlock{Language: segment.Language, Code: segment.Text})
		}
	}
	return blocks
}

// LastCodeBlock of the content, or nil.
func LastCodeBlock(content string) *CodeBlock {
	blocks := ParseCodeBlocks(content)
	if len(blocks) == 0 {
		return nil
	}
	return blocks[len(blocks)-1]
}
