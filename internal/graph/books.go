package graph

import "github.com/kjstillabower/metar-gateway/internal/models"

var books = []models.Book{
	{Title: "The Awakening", Author: "Kate Chopin"},
	{Title: "City of Glass", Author: "Paul Auster"},
}

// Books returns the static demo catalog. Callers get their own copy.
func Books() []models.Book {
	out := make([]models.Book, len(books))
	copy(out, books)
	return out
}
