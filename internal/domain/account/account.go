package account

import "slices"

// UserTypeAdministrator marks users allowed to see every product.
const UserTypeAdministrator = "administrator"

// User is a requesting identity.
type User struct {
	ID        string `json:"_id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	UserType  string `json:"user_type"`
	CompanyID string `json:"company,omitempty"`
	IsEnabled bool   `json:"is_enabled"`
}

// IsAdmin reports whether the user is an administrator.
func (u *User) IsAdmin() bool {
	return u != nil && u.UserType == UserTypeAdministrator
}

// Company is a subscriber organization.
type Company struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	CompanyType   string `json:"company_type,omitempty"`
	ArchiveAccess bool   `json:"archive_access"`
	IsEnabled     bool   `json:"is_enabled"`
}

// Product is a named content package a company can be entitled to.
type Product struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Query       string   `json:"query,omitempty"`
	SDProductID string   `json:"sd_product_id,omitempty"`
	ProductType string   `json:"product_type"`
	Companies   []string `json:"companies"`
	Navigations []string `json:"navigations"`
	IsEnabled   bool     `json:"is_enabled"`
}

// ProvisionedTo reports whether the product is provisioned for the company.
func (p *Product) ProvisionedTo(companyID string) bool {
	return slices.Contains(p.Companies, companyID)
}

// ProductIDs returns the ids of products in order.
func ProductIDs(products []Product) []string {
	ids := make([]string, 0, len(products))
	for i := range products {
		ids = append(ids, products[i].ID)
	}
	return ids
}
