package auth

import "github.com/dalilsuez/backend/internal/models"

// ServiceInterface defines the contract for token operations.
// This enables mocking for unit tests without requiring a real database.
type ServiceInterface interface {
	GenerateToken(user *models.User) (*AuthResponse, error)
	ValidateToken(tokenString string) (*models.User, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
