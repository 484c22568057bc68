package lockapi

// TokenResponse is a signed unlock session.
type TokenResponse struct {
	Token string `json:"token"`
}

// LockingResponse is the state of the application lock.
type LockingResponse struct {
	Enabled     bool `json:"enabled"`
	HasPassword bool `json:"has_password"`
	Locked      bool `json:"locked"`
}
