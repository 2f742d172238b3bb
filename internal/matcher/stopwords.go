package matcher

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed stopwords.txt
var defaultStopwords []byte

// Stopwords is a set of lower-cased words excluded from keyword matching.
type Stopwords map[string]struct{}

// Contains reports whether w is a stopword. A nil set contains nothing.
func (s Stopwords) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// DefaultStopwords returns the built-in English and Romanized Urdu list.
func DefaultStopwords() Stopwords {
	sw, err := ParseStopwords(bytes.NewReader(defaultStopwords))
	if err != nil {
		// embedded file is read from memory
		panic(fmt.Sprintf("matcher: invalid embedded stopwords: %v", err))
	}
	return sw
}

// ParseStopwords reads one word per line. Blank lines and lines starting
// with '#' are skipped.
func ParseStopwords(r io.Reader) (Stopwords, error) {
	sw := make(Stopwords)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sw[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading stopwords: %w", err)
	}
	return sw, nil
}

// LoadStopwords reads a stopword file from disk.
func LoadStopwords(path string) (Stopwords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening stopwords file: %w", err)
	}
	defer f.Close()

	return ParseStopwords(f)
}
