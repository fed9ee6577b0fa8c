package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxContentLength est exprimé en caractères (runes), pas en octets.
const MaxContentLength = 280

type Post struct {
	ID       string
	UserID   string
	Content  string
	PostedAt time.Time
}

// ValidateContent applique les règles de contenu dans l'ordre : vide, puis longueur.
func ValidateContent(content string) error {
	if content == "" {
		return BadRequest("post content cannot be empty.")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return BadRequest("post content may not exceed 280 characters.")
	}
	return nil
}

// NewPost crée un post valide. L'identité et la date sont générées ICI, pas en DB.
// La date est tronquée à la microseconde, la précision de timestamptz.
func NewPost(userID, content string, now time.Time) (*Post, error) {
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	return &Post{
		ID:       uuid.NewString(),
		UserID:   userID,
		Content:  content,
		PostedAt: now.UTC().Truncate(time.Microsecond),
	}, nil
}

// IsOwnedBy vérifie la propriété (seul l'auteur peut supprimer).
func (p *Post) IsOwnedBy(userID string) bool {
	return p.UserID == userID
}
