package orgapi

import (
	"time"

	"orgmgr/internal/lifecycle"
)

type CreateOrgBody struct {
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
}

type UpdateOrgBody struct {
	OrganizationName string  `json:"organization_name"`
	Email            *string `json:"email"`
	Password         *string `json:"password"`
}

type LoginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreatedResponse struct {
	OrganizationName string `json:"organization_name"`
	CollectionName   string `json:"collection_name"`
	AdminID          string `json:"admin_id"`
}

type TenantResponse struct {
	ID               string    `json:"id"`
	OrganizationName string    `json:"organization_name"`
	CollectionName   string    `json:"collection_name"`
	AdminID          string    `json:"admin_id"`
	CreatedAt        time.Time `json:"created_at"`
}

type DeletedResponse struct {
	Status       string `json:"status"`
	Organization string `json:"organization"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func tenantResponse(v lifecycle.View) TenantResponse {
	return TenantResponse{
		ID:               v.ID,
		OrganizationName: v.Name,
		CollectionName:   v.CollectionName,
		AdminID:          v.AdminID,
		CreatedAt:        v.CreatedAt,
	}
}
