// Package deck loads flashcard decks from YAML and TSV files. A deck is an
// ordered list of question/answer cards plus optional per-file settings that
// override the main configuration for that deck only.
package deck
