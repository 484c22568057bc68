package accountapi

import (
	"sort"
	"strings"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/credential"
	"github.com/fmitra/otpkeeper/internal/registry"
)

// ProviderResponse is a Provider as seen by the UI.
type ProviderResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
	DocURL  string `json:"doc_url,omitempty"`
	Image   string `json:"image,omitempty"`
}

// AccountResponse is an Account with its current code.
type AccountResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Provider string `json:"provider"`
	Code     string `json:"code"`
	HasCode  bool   `json:"has_code"`
	Counter  uint64 `json:"counter"`
}

// GroupResponse is the list of Accounts sharing a Provider.
type GroupResponse struct {
	Provider ProviderResponse  `json:"provider"`
	Accounts []AccountResponse `json:"accounts"`
}

// ListResponse is every managed Account grouped by Provider.
type ListResponse struct {
	Counter int             `json:"counter"`
	Period  int             `json:"period"`
	Groups  []GroupResponse `json:"groups"`
}

// CountdownResponse is the shared countdown state.
type CountdownResponse struct {
	Counter int  `json:"counter"`
	Period  int  `json:"period"`
	Running bool `json:"running"`
}

// ImportResponse reports the number of imported Accounts.
type ImportResponse struct {
	Imported int `json:"imported"`
}

func newProviderResponse(p *keeper.Provider) ProviderResponse {
	if p == nil {
		return ProviderResponse{Name: keeper.DefaultProviderName}
	}
	return ProviderResponse{
		ID:      p.ID,
		Name:    p.Name,
		Website: p.Website.String,
		DocURL:  p.DocURL.String,
		Image:   p.Image.String,
	}
}

func newAccountResponse(a *credential.Account) AccountResponse {
	code, _ := a.CurrentCode()
	counter, _ := a.Counter()
	resp := AccountResponse{
		ID:       a.ID(),
		Username: a.Username(),
		Provider: keeper.DefaultProviderName,
		Code:     code,
		HasCode:  a.HasCode(),
		Counter:  counter,
	}
	if p := a.Provider(); p != nil {
		resp.Provider = p.Name
	}
	return resp
}

func newAccountsResponse(accounts []*credential.Account) []AccountResponse {
	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, newAccountResponse(a))
	}
	return resp
}

func newListResponse(r *registry.Registry, codeless []*credential.Account) *ListResponse {
	groups := r.Groups()
	for _, a := range codeless {
		groups = appendToGroup(groups, a)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Provider.Name) < strings.ToLower(groups[j].Provider.Name)
	})

	resp := &ListResponse{
		Counter: r.Counter(),
		Period:  r.Period(),
		Groups:  make([]GroupResponse, 0, len(groups)),
	}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, GroupResponse{
			Provider: newProviderResponse(g.Provider),
			Accounts: newAccountsResponse(g.Accounts),
		})
	}
	return resp
}

func appendToGroup(groups []registry.Group, a *credential.Account) []registry.Group {
	p := a.Provider()
	for i, g := range groups {
		if g.Provider.ID == p.ID {
			groups[i].Accounts = append(groups[i].Accounts, a)
			return groups
		}
	}
	return append(groups, registry.Group{Provider: p, Accounts: []*credential.Account{a}})
}
