package httpx

import "github.com/jcmexdev/ecommerce-orders/internal/user-service/domain"

type UserRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

type UserResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

func (r UserRequest) toDomain() *domain.User {
	return &domain.User{Name: r.Name, Email: r.Email, PhoneNumber: r.PhoneNumber}
}

func mapUserToResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, PhoneNumber: u.PhoneNumber}
}
