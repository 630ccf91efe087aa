// Command cardcast turns YAML flashcard decks into narrated slideshow videos.
package main
