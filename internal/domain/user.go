package domain

// User is an authenticated account. Users are owned by the auth provider;
// the local copy only keeps what reports need.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
