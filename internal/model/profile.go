package model

// UserProfile is the onboarding profile of the session owner.
type UserProfile struct {
	FullName      string  `json:"fullName" validate:"required,notblank"`
	Email         string  `json:"email" validate:"omitempty,email"`
	MonthlyIncome float64 `json:"monthlyIncome" validate:"finite,gte=0"`
	IncomeDays    string  `json:"incomeDays"` // free-form, e.g. "15 y 30"
}

// Account is an entry of the local account registry. Accounts outlive sessions.
type Account struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	FullName     string `json:"fullName,omitempty"`
}
