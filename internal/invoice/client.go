package invoice

// Client represents the billed party of one invoice. Each source row creates
// a fresh Client; clients are never shared across invoices, even when the
// same name repeats in the table.
type Client struct {
	Name        string
	Address     string
	CountryCode string
	TaxNumber   string
}

// NewClient creates a client. The tax number may be empty.
func NewClient(name, address, countryCode, taxNumber string) Client {
	return Client{
		Name:        name,
		Address:     address,
		CountryCode: countryCode,
		TaxNumber:   taxNumber,
	}
}
