package domain

import "time"

// Roles de cuenta.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Tipos de cuenta, mutuamente excluyentes y fijos desde la creación.
const (
	AccountTypeEmail  = "email"
	AccountTypeGithub = "github"
	AccountTypeGoogle = "google"
)

// Account representa una identidad humana.
// El par (email, account_type) es único; username es único globalmente.
type Account struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	AccountType    string `json:"account_type"`
	Verified       bool   `json:"verified"`
	ProfilePicture string `json:"profile_picture,omitempty"`

	// Campos sensibles: solo se cargan bajo proyección explícita y nunca se serializan.
	PasswordHash           string     `json:"-"`
	VerificationCodeHash   string     `json:"-"`
	VerificationCodeExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// File es una hoja de cálculo subida y ya parseada a filas tabulares.
type File struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Filename   string           `json:"filename"`
	SheetName  string           `json:"sheet_name"`
	Rows       int              `json:"rows"`
	Columns    int              `json:"columns"`
	Parsed     []map[string]any `json:"parsed"`
	FileSizeKB int64            `json:"file_size"`
	Sharing    bool             `json:"sharing"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Chart es una definición de gráfico derivada de un archivo.
type Chart struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	FileID       string           `json:"file_id"`
	Data         []map[string]any `json:"data"`
	Config       map[string]any   `json:"config"`
	XAxisDataKey string           `json:"x_axis_data_key"`
	YAxisDataKey string           `json:"y_axis_data_key"`
	Legend       string           `json:"legend,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Pagination describe la página devuelta por listados.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}

// NewPagination calcula los totales de página para un listado.
func NewPagination(total int64, page, limit int) Pagination {
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// FileStats agrega los archivos de un usuario.
type FileStats struct {
	Total       int64 `json:"total"`
	Public      int64 `json:"public"`
	Private     int64 `json:"private"`
	TotalSizeKB int64 `json:"total_size"`
}

// AccountStats agrega las cuentas registradas, para el panel de administración.
type AccountStats struct {
	Total      int64 `json:"total"`
	Verified   int64 `json:"verified"`
	Unverified int64 `json:"unverified"`
	Email      int64 `json:"email"`
	Github     int64 `json:"github"`
	Google     int64 `json:"google"`
}
