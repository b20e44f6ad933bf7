package admin

// RegisterRequest issues a key for Username. Password is the admin password.
type RegisterRequest struct {
	Username string `header:"username" binding:"required"`
	Password string `header:"password" binding:"required"`
}

type CleanupRequest struct {
	Password string `header:"password" binding:"required"`
}
