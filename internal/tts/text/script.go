package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxInputLength is the speech API input limit in characters.
	MaxInputLength = 4096
	// DefaultChunkLimit keeps chunks well below MaxInputLength.
	DefaultChunkLimit = 1800
	// WordsPerMinute is the speaking rate used for duration estimates.
	WordsPerMinute = 150

	minComfortableLength = 100
	minSentenceCount     = 3
	skipMarker           = "..."
	pronounPrefix        = "I "
	continuousSeparator  = ". "
)

// Script warnings reported by Analyze.
const (
	WarnVeryShort     = "Text seems very short"
	WarnEllipsis      = "Contains '...' which might stop TTS"
	WarnFewSentences  = "Very few sentences"
	warnLeadingAmWord = "am "
)

var (
	bulletPattern    = regexp.MustCompile(`^\s*[-•*]\s*`)
	numberingPattern = regexp.MustCompile(`^\d+[.)]\s*`)
)

// Analysis describes a script before it is sent for synthesis.
type Analysis struct {
	Warnings         []string
	Characters       int
	Words            int
	Sentences        int
	EstimatedMinutes float64
}

// ExtractAffirmations returns one affirmation per non-empty line. Lines that
// are exactly "..." are skipped; leading bullets and numbering are removed;
// a line starting with "am " is prefixed with "I ".
func ExtractAffirmations(script string) []string {
	var affirmations []string

	for _, line := range strings.Split(NormalizeLines(script), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == skipMarker {
			continue
		}

		line = bulletPattern.ReplaceAllString(line, "")
		line = numberingPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if strings.HasPrefix(strings.ToLower(line), warnLeadingAmWord) {
			line = pronounPrefix + line
		}

		affirmations = append(affirmations, line)
	}

	return affirmations
}

// ContinuousText joins affirmations into one passage separated by ". ".
// An affirmation that already ends a sentence is followed by a space only.
func ContinuousText(affirmations []string) string {
	var builder strings.Builder

	for index, affirmation := range affirmations {
		affirmation = strings.TrimSpace(affirmation)
		if affirmation == "" {
			continue
		}

		if builder.Len() > 0 {
			builder.WriteString(" ")
		}

		builder.WriteString(affirmation)

		last, _ := utf8.DecodeLastRuneInString(affirmation)
		if !isSentenceEnd(last) && index < len(affirmations)-1 {
			builder.WriteString(strings.TrimSuffix(continuousSeparator, " "))
		}
	}

	return EnsureSentenceEnding(builder.String())
}

// ChunkText splits text into chunks of at most maxRunes runes, packing whole
// sentences where possible. A sentence longer than maxRunes is split on word
// boundaries and a single oversize word on rune boundaries. Text within the
// limit is returned as one chunk.
func ChunkText(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if maxRunes <= 0 {
		maxRunes = DefaultChunkLimit
	}

	if utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}

	packer := chunkPacker{limit: maxRunes, chunks: nil, current: ""}

	for _, sentence := range SplitSentences(text) {
		if utf8.RuneCountInString(sentence) <= maxRunes {
			packer.add(sentence)

			continue
		}

		for _, piece := range splitWords(sentence, maxRunes) {
			packer.add(piece)
		}
	}

	return packer.finish()
}

// SplitSentences splits text after ".", "!" or "?" followed by whitespace.
func SplitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)

	runes := []rune(text)

	for index := 0; index < len(runes)-1; index++ {
		if isSentenceEnd(runes[index]) && unicode.IsSpace(runes[index+1]) {
			sentence := strings.TrimSpace(string(runes[start : index+1]))
			if sentence != "" {
				sentences = append(sentences, sentence)
			}

			start = index + 1
		}
	}

	if last := strings.TrimSpace(string(runes[start:])); last != "" {
		sentences = append(sentences, last)
	}

	return sentences
}

// Analyze reports length statistics and common script problems.
func Analyze(script string) Analysis {
	script = strings.TrimSpace(script)
	words := len(strings.Fields(script))

	analysis := Analysis{
		Warnings:         []string{},
		Characters:       utf8.RuneCountInString(script),
		Words:            words,
		Sentences:        len(SplitSentences(script)),
		EstimatedMinutes: float64(words) / WordsPerMinute,
	}

	if analysis.Characters < minComfortableLength {
		analysis.Warnings = append(analysis.Warnings, WarnVeryShort)
	}

	if strings.Contains(script, skipMarker) {
		analysis.Warnings = append(analysis.Warnings, WarnEllipsis)
	}

	if strings.Count(script, ".") < minSentenceCount {
		analysis.Warnings = append(analysis.Warnings, WarnFewSentences)
	}

	return analysis
}

type chunkPacker struct {
	chunks  []string
	current string
	limit   int
}

func (p *chunkPacker) add(piece string) {
	if p.current == "" {
		p.current = piece

		return
	}

	if utf8.RuneCountInString(p.current)+1+utf8.RuneCountInString(piece) <= p.limit {
		p.current += " " + piece

		return
	}

	p.chunks = append(p.chunks, p.current)
	p.current = piece
}

func (p *chunkPacker) finish() []string {
	if p.current != "" {
		p.chunks = append(p.chunks, p.current)
	}

	return p.chunks
}

// splitWords breaks an oversize sentence into pieces of at most limit runes.
func splitWords(sentence string, limit int) []string {
	packer := chunkPacker{limit: limit, chunks: nil, current: ""}

	for _, word := range strings.Fields(sentence) {
		runes := []rune(word)

		for len(runes) > limit {
			packer.add(string(runes[:limit]))
			runes = runes[limit:]
		}

		packer.add(string(runes))
	}

	return packer.finish()
}
