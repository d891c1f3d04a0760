// Package model holds the shared domain types for the dashboard.
package model

// PartnerRef is the bare partner identifier carried on a user record.
// The full display record is resolved separately after login.
type PartnerRef struct {
	Code string `json:"code"`
}

// Partner is a resolved partner organization.
type Partner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is the authenticated operator as returned by the upstream auth
// service. Immutable after login; a new login replaces it wholesale.
type User struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Partners    []PartnerRef `json:"partners"`
	AccessToken string       `json:"access_token"`
}

// Session is the observable authentication state. IsAuthenticated can be
// true while the partner list is still resolving; consumers that depend
// on partner data must gate on PartnersReady instead.
type Session struct {
	IsAuthenticated bool  `json:"is_authenticated"`
	User            *User `json:"user,omitempty"`
	PartnersReady   bool  `json:"partners_ready"`
	LoadingPartners bool  `json:"loading_partners"`
}
