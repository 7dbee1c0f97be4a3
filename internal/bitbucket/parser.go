package bitbucket

import (
	"regexp"
	"strconv"
)

// Parser extracts issue IDs from branch names, titles and commit text
type Parser struct {
	keywordRegex *regexp.Regexp
	hashRegex    *regexp.Regexp
}

// NewParser creates a new parser
func NewParser() *Parser {
	return &Parser{
		// issue-123, issues-123, task-#456, tasks-#456
		keywordRegex: regexp.MustCompile(`(?i)(?:issue|task)s?-#?(\d+)`),
		// #123 when not glued to a word character or another '#'
		hashRegex: regexp.MustCompile(`(?:^|[^\w#])#(\d+)(?:[^\d]|$)`),
	}
}

// ExtractIssueID returns the first issue ID found in text. The keyword form
// always wins over the bare #123 form.
func (p *Parser) ExtractIssueID(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}

	if id, ok := firstID(p.keywordRegex, text); ok {
		return id, true
	}
	return firstID(p.hashRegex, text)
}

// ExtractFirstIssueID tries each text in order and returns the first hit
func (p *Parser) ExtractFirstIssueID(texts ...string) (int64, bool) {
	for _, text := range texts {
		if id, ok := p.ExtractIssueID(text); ok {
			return id, true
		}
	}
	return 0, false
}

// HasIssueID checks if the text references an issue
func (p *Parser) HasIssueID(text string) bool {
	_, ok := p.ExtractIssueID(text)
	return ok
}

func firstID(re *regexp.Regexp, text string) (int64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		// digit run does not fit an issue id
		return 0, false
	}
	return id, true
}
