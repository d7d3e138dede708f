package orgapi

import (
	"net/http"
	"strings"

	"orgmgr/internal/lifecycle"
	"orgmgr/pkg/middleware"
)

func (a *App) createOrg(w http.ResponseWriter, r *http.Request) {
	var b CreateOrgBody
	if !decodeBody(w, r, &b) {
		return
	}
	out, err := a.svc.Create(r.Context(), b.OrganizationName, b.Email, b.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, CreatedResponse{
		OrganizationName: out.Name,
		CollectionName:   out.CollectionName,
		AdminID:          out.AdminID,
	}, http.StatusCreated)
}

func (a *App) getOrg(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("organization_name")
	if strings.TrimSpace(name) == "" {
		a.writeError(w, r, missingParam("organization_name"))
		return
	}
	v, err := a.svc.Get(r.Context(), name)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, tenantResponse(v), http.StatusOK)
}

func (a *App) updateOrg(w http.ResponseWriter, r *http.Request) {
	claim, _ := middleware.ClaimFrom(r.Context())
	var b UpdateOrgBody
	if !decodeBody(w, r, &b) {
		return
	}
	v, err := a.svc.Update(r.Context(), claim, lifecycle.UpdateRequest{
		Name:     b.OrganizationName,
		Email:    b.Email,
		Password: b.Password,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, tenantResponse(v), http.StatusOK)
}

func (a *App) deleteOrg(w http.ResponseWriter, r *http.Request) {
	claim, _ := middleware.ClaimFrom(r.Context())
	name := r.URL.Query().Get("organization_name")
	if strings.TrimSpace(name) == "" {
		a.writeError(w, r, missingParam("organization_name"))
		return
	}
	out, err := a.svc.Delete(r.Context(), name, claim)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, DeletedResponse{Status: out.Status, Organization: out.Tenant}, http.StatusOK)
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	var b LoginBody
	if !decodeBody(w, r, &b) {
		return
	}
	tok, err := a.svc.Login(r.Context(), b.Email, b.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, TokenResponse{AccessToken: tok.AccessToken, TokenType: tok.TokenType}, http.StatusOK)
}
