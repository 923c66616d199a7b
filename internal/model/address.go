package model

type CustomerAddress struct {
	BaseModel
	UserID       string `db:"user_id" json:"user_id"`
	AddressLine1 string `db:"address_line1" json:"address_line1"`
	AddressLine2 string `db:"address_line2" json:"address_line2"`
	City         string `db:"city" json:"city"`
	State        string `db:"state" json:"state"`
	PostalCode   string `db:"postal_code" json:"postal_code"`
	Country      string `db:"country" json:"country"`
	IsDefault    bool   `db:"is_default" json:"is_default"`
}

// Formatted is the single-line form stored on orders.
func (a *CustomerAddress) Formatted() string {
	out := a.AddressLine1
	for _, part := range []string{a.AddressLine2, a.City, a.State, a.PostalCode, a.Country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}
