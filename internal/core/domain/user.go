package domain

// User est une réplique locale de l'agrégat possédé par l'identity-service.
// Elle n'est écrite QUE par consommation d'événements (user-added / user-updated).
// Aucun événement de suppression n'existe : un post peut référencer un user obsolète.
type User struct {
	ID          string
	DisplayName string
}

// Rename applique un user-updated. L'ID ne change jamais.
func (u *User) Rename(displayName string) {
	u.DisplayName = displayName
}
