package core

// User is a local account linked to an aggregator user
type User struct {
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"password"`
	TinkUserID   string   `json:"tink_user_id"`
	Credentials  []string `json:"credentials"`
}
