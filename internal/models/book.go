package models

// Book is a record of the static demo catalog.
type Book struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}
