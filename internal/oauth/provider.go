package oauth

import "context"

// Profile es el perfil mínimo que se obtiene de un proveedor federado tras el
// intercambio de código de autorización.
type Profile struct {
	Username string
	Email    string
	Picture  string
}

// Provider abstrae un proveedor de login federado estilo OAuth: genera la URL
// de autorización y canjea un código por el perfil del usuario.
type Provider interface {
	AuthURL() string
	Exchange(ctx context.Context, code string) (Profile, error)
}
