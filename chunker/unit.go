package chunker

import "strings"

// unit is a span of text produced by boundary decomposition. sep is the
// separator that preceded the unit in the source and is re-inserted when the
// unit is not first in its chunk, so joined output reads like the original.
type unit struct {
	text   string
	sep    string
	tokens int
}

// joinUnits reassembles units into a single passage, re-inserting each
// unit's separator except for the first.
func joinUnits(units []unit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			b.WriteString(u.sep)
		}
		b.WriteString(u.text)
	}
	return b.String()
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// splitAfter splits s after any byte satisfying isTerm that is followed by
// whitespace. The terminator stays with the left part; the whitespace run is
// consumed. Mirrors sentence/clause splitting on terminal punctuation.
func splitAfter(s string, isTerm func(byte) bool) []string {
	var parts []string
	start := 0
	for i := 0; i+1 < len(s); i++ {
		if !isTerm(s[i]) || !isSpaceByte(s[i+1]) {
			continue
		}
		j := i + 1
		for j < len(s) && isSpaceByte(s[j]) {
			j++
		}
		parts = append(parts, s[start:i+1])
		start = j
		i = j - 1
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

func isSentenceTerm(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

func isClauseTerm(c byte) bool {
	return c == ',' || c == ';' || c == ':'
}

// splitSentences splits a line into sentences on terminal punctuation
// followed by whitespace.
func splitSentences(line string) []string {
	return splitAfter(line, isSentenceTerm)
}

// splitClauses splits a sentence into clauses on commas, semicolons and
// colons followed by whitespace. Clauses are the finest granularity; a
// clause is never divided further.
func splitClauses(sentence string) []string {
	return splitAfter(sentence, isClauseTerm)
}

// decompose walks text as paragraphs and descends to lines, sentences and
// clauses only when the coarser unit alone exceeds the budget reported by
// fits. The first child of any decomposition inherits the parent separator
// so paragraph and line boundaries survive in the reassembled output.
func decompose(text string, fits func(string) bool, measure func(string) int) []unit {
	var out []unit

	emit := func(t, sep string) {
		out = append(out, unit{text: t, sep: sep, tokens: measure(t)})
	}

	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		if fits(para) {
			emit(para, "\n\n")
			continue
		}
		paraSep := "\n\n"
		for _, line := range strings.Split(para, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lineSep := paraSep
			paraSep = "\n"
			if fits(line) {
				emit(line, lineSep)
				continue
			}
			sentSep := lineSep
			for _, sent := range splitSentences(line) {
				sep := sentSep
				sentSep = " "
				if fits(sent) {
					emit(sent, sep)
					continue
				}
				clauseSep := sep
				for _, clause := range splitClauses(sent) {
					emit(clause, clauseSep)
					clauseSep = " "
				}
			}
		}
	}
	return out
}
