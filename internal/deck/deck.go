package deck

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cardcast/internal/config"
	"cardcast/internal/textutil"
)

// Card is one flashcard. Its position in the deck is its identity for
// caching, so reordering cards regenerates downstream artifacts.
type Card struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Deck is a parsed deck file. The override fields are optional and shadow the
// corresponding config values for this deck only.
type Deck struct {
	Title string `yaml:"title"`

	MainVoice     string   `yaml:"voice"`
	CodeVoice     string   `yaml:"code_voice"`
	QuestionDelay *float64 `yaml:"question_delay"`
	AnswerDelay   *float64 `yaml:"answer_delay"`
	CardGap       *float64 `yaml:"card_gap"`
	FontSize      *float64 `yaml:"font_size"`

	Cards []Card `yaml:"cards"`

	// Source is the path the deck was loaded from. Not part of the file.
	Source string `yaml:"-"`
}

// Load reads and validates a YAML deck file.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("deck: read %s: %w", path, err)
	}
	var d Deck
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("deck: parse %s: %w", path, err)
	}
	d.Source = path
	if d.Title == "" {
		d.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("deck: %s: %w", path, err)
	}
	return &d, nil
}

// LoadTSV reads a tab-separated question/answer export. Lines without a tab
// and blank lines are skipped. TSV decks carry no override fields.
func LoadTSV(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("deck: read %s: %w", path, err)
	}
	defer f.Close()

	d := &Deck{
		Title:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Source: path,
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		question, answer, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		// Anki-style exports escape embedded newlines.
		answer = strings.ReplaceAll(answer, "\\n", "\n")
		d.Cards = append(d.Cards, Card{
			Question: strings.TrimSpace(question),
			Answer:   strings.TrimSpace(answer),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("deck: read %s: %w", path, err)
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("deck: %s: %w", path, err)
	}
	return d, nil
}

// LoadAny dispatches on file extension: .tsv and .txt load as TSV, anything
// else as YAML.
func LoadAny(path string) (*Deck, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return LoadTSV(path)
	default:
		return Load(path)
	}
}

func (d *Deck) validate() error {
	if len(d.Cards) == 0 {
		return fmt.Errorf("no cards")
	}
	for i, card := range d.Cards {
		if strings.TrimSpace(card.Question) == "" {
			return fmt.Errorf("card %d: empty question", i+1)
		}
		if strings.TrimSpace(card.Answer) == "" {
			return fmt.Errorf("card %d: empty answer", i+1)
		}
	}
	return nil
}

// DuplicatePair identifies two cards whose questions are nearly identical.
type DuplicatePair struct {
	First      int
	Second     int
	Similarity float64
}

// duplicateThreshold is the cosine similarity above which two questions are
// reported as probable duplicates.
const duplicateThreshold = 0.9

// Duplicates reports card pairs with nearly identical questions. Duplicates
// are legal (each card caches independently by index) but usually indicate a
// deck-editing mistake, so callers surface them as warnings.
func (d *Deck) Duplicates() []DuplicatePair {
	prints := make([]*textutil.Fingerprint, len(d.Cards))
	for i, card := range d.Cards {
		prints[i] = textutil.NewFingerprint(card.Question)
	}
	var pairs []DuplicatePair
	for i := range prints {
		for j := i + 1; j < len(prints); j++ {
			sim := textutil.Similarity(prints[i], prints[j])
			if sim >= duplicateThreshold {
				pairs = append(pairs, DuplicatePair{First: i, Second: j, Similarity: sim})
			}
		}
	}
	return pairs
}

// Overrides converts the deck's optional settings into a config override
// layer. Empty and nil fields leave the config untouched.
func (d *Deck) Overrides() config.Overrides {
	var o config.Overrides
	if d.MainVoice != "" {
		o.MainVoice = &d.MainVoice
	}
	if d.CodeVoice != "" {
		o.CodeVoice = &d.CodeVoice
	}
	o.QuestionDelay = d.QuestionDelay
	o.AnswerDelay = d.AnswerDelay
	o.CardGap = d.CardGap
	o.FontSize = d.FontSize
	return o
}
